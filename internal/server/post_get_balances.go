package server

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/ligun0805/multisender/internal/network"
)

type getBalancesBody struct {
	Network *network.Config `json:"network"`
}

func PostGetBalancesRoute(s *Server) *echo.Route {
	return s.Echo.POST("/get_balances", postGetBalancesHandler(s))
}

func postGetBalancesHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body getBalancesBody
		if err := c.Bind(&body); err != nil {
			return fail(c, http.StatusBadRequest, "Invalid request body")
		}
		if body.Network == nil {
			return fail(c, http.StatusBadRequest, "Network configuration is required")
		}
		if err := body.Network.Validate(); err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		keys := s.Sessions.Keys(sessionID(c))
		if len(keys) == 0 {
			return fail(c, http.StatusBadRequest, "No wallets imported")
		}
		addrs := make([]common.Address, len(keys))
		for i, k := range keys {
			addrs[i] = k.Address
		}
		entries := s.Chain.Balances(c.Request().Context(), *body.Network, addrs)
		return c.JSON(http.StatusOK, envelope{Success: true, Balance: entries})
	}
}
