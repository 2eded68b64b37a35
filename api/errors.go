package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// statusFor maps a kudzuerr.Kind to an HTTP status for a thin transport:
// not-found conditions to 404, timeouts to 504, budget/consensus/denied to
// 403, malformed input to 400, everything else to 502/500 depending on
// whether the core or a peer is at fault.
func statusFor(err error) int {
	switch {
	case kudzuerr.IsKind(err, kudzuerr.KindNotFound):
		return http.StatusNotFound
	case kudzuerr.IsKind(err, kudzuerr.KindTimeout):
		return http.StatusGatewayTimeout
	case kudzuerr.IsKind(err, kudzuerr.KindDenied),
		kudzuerr.IsKind(err, kudzuerr.KindOpenBlockedInProd),
		kudzuerr.IsKind(err, kudzuerr.KindBudgetExceeded),
		kudzuerr.IsKind(err, kudzuerr.KindRequiresConsensus),
		kudzuerr.IsKind(err, kudzuerr.KindCognitionDisabled):
		return http.StatusForbidden
	case kudzuerr.IsKind(err, kudzuerr.KindInvalidInput),
		kudzuerr.IsKind(err, kudzuerr.KindIncompatible),
		kudzuerr.IsKind(err, kudzuerr.KindIncompatibleTraces),
		kudzuerr.IsKind(err, kudzuerr.KindEmptyBundle):
		return http.StatusBadRequest
	case kudzuerr.IsKind(err, kudzuerr.KindUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
