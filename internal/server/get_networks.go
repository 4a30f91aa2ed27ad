package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ligun0805/multisender/internal/network"
)

func GetNetworksRoute(s *Server) *echo.Route {
	return s.Echo.GET("/networks", getNetworksHandler)
}

// getNetworksHandler lists the predefined networks keyed by identifier.
func getNetworksHandler(c echo.Context) error {
	out := make(map[string]network.Config)
	for _, id := range network.Identifiers() {
		n, _ := network.Predefined(id)
		out[id] = n
	}
	return c.JSON(http.StatusOK, out)
}
