package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func PostClearSessionRoute(s *Server) *echo.Route {
	return s.Echo.POST("/clear_session", postClearSessionHandler(s))
}

func postClearSessionHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := sessionID(c); id != "" {
			s.Sessions.Delete(id)
			expireSession(c)
		}
		return c.JSON(http.StatusOK, envelope{Success: true})
	}
}
