package http

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/history"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/txlife"
	"github.com/quantumauth-io/tempo-gm-client/internal/gm-client/wallet"
)

// statusFor maps an error kind to the HTTP status returned for it.
func statusFor(err error) int {
	switch {
	case wallet.IsUserRejected(err):
		return http.StatusForbidden
	case errors.Is(err, wallet.ErrNoTransport):
		return http.StatusServiceUnavailable
	case errors.Is(err, txlife.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrNetwork),
		errors.Is(err, wallet.ErrConnect),
		errors.Is(err, txlife.ErrSubmit):
		return http.StatusBadGateway
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorRes{Error: err.Error(), RequestID: requestID(c)})
}
