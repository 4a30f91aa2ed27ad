package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ligun0805/multisender/internal/chain"
	"github.com/ligun0805/multisender/internal/network"
	"github.com/ligun0805/multisender/internal/transfer"
)

type sendTransactionsBody struct {
	Network          *network.Config `json:"network"`
	Percentage       int             `json:"percentage"`
	RecipientAddress string          `json:"recipient_address"`
}

func PostSendTransactionsRoute(s *Server) *echo.Route {
	return s.Echo.POST("/send_transactions", postSendTransactionsHandler(s))
}

func postSendTransactionsHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body sendTransactionsBody
		if err := c.Bind(&body); err != nil {
			return fail(c, http.StatusBadRequest, "Invalid request body")
		}
		if body.Network == nil || body.Percentage == 0 || body.RecipientAddress == "" {
			return fail(c, http.StatusBadRequest, "Missing required parameters")
		}
		if err := body.Network.Validate(); err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		if !transfer.IsPercentage(body.Percentage) {
			return fail(c, http.StatusBadRequest, "Invalid percentage")
		}
		to, err := chain.ParseAddress(body.RecipientAddress)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid recipient address")
		}
		keys := s.Sessions.Keys(sessionID(c))
		if len(keys) == 0 {
			return fail(c, http.StatusBadRequest, "No wallets imported")
		}

		s.Log.Info("sending batch", "network", body.Network.Name, "wallets", len(keys),
			"percentage", body.Percentage, "recipient", to.Hex())
		results := s.Chain.Send(c.Request().Context(), *body.Network, keys, body.Percentage, to)
		sum := transfer.Summarize(results)
		s.Log.Info("batch finished", "success", sum.Success, "failed", sum.Failed)
		return c.JSON(http.StatusOK, envelope{Success: true, Results: results})
	}
}
