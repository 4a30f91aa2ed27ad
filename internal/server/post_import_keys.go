package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/ligun0805/multisender/internal/chain"
)

func PostImportKeysRoute(s *Server) *echo.Route {
	return s.Echo.POST("/import_keys", postImportKeysHandler(s))
}

func postImportKeysHandler(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fail(c, http.StatusBadRequest, "No file uploaded")
		}
		if fh.Filename == "" {
			return fail(c, http.StatusBadRequest, "No file selected")
		}
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusInternalServerError, err.Error())
		}
		data, err := io.ReadAll(io.LimitReader(f, s.Config.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			return fail(c, http.StatusInternalServerError, err.Error())
		}
		if int64(len(data)) > s.Config.MaxUploadBytes {
			return fail(c, http.StatusRequestEntityTooLarge, "File too large")
		}
		if len(data) > 0 && !isText(data) {
			return fail(c, http.StatusUnsupportedMediaType, "File must be plain text")
		}

		keys, skipped, err := chain.DeriveKeys(data)
		if skipped > 0 {
			s.Log.Warn("skipped malformed key lines", "file", fh.Filename, "skipped", skipped)
		}
		if err != nil {
			if errors.Is(err, chain.ErrNoValidKeys) {
				return fail(c, http.StatusBadRequest, "No valid private keys found in file")
			}
			return fail(c, http.StatusInternalServerError, err.Error())
		}

		id := ensureSession(c)
		s.Sessions.Put(id, keys)
		out := make([]walletJSON, len(keys))
		for i, k := range keys {
			out[i] = walletJSON{Address: k.Address.Hex()}
		}
		s.Log.Info("keys imported", "count", len(keys))
		return c.JSON(http.StatusOK, envelope{Success: true, Wallets: out, Count: len(out)})
	}
}

// isText reports whether data sniffs as text/plain or one of its subtypes.
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
