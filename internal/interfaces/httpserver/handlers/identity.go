package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/duetapp/duet-server/internal/interfaces/httpserver/responses"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

const (
	headerUserID   = "X-User-ID"
	headerCoupleID = "X-Couple-ID"
)

// callerIdentity reads the identity headers the auth edge injects. Both are
// required on every couple-scoped route; the handler aborts with 400 when
// either is missing.
func callerIdentity(c *gin.Context) (userID, coupleID string, ok bool) {
	userID = c.GetHeader(headerUserID)
	coupleID = c.GetHeader(headerCoupleID)
	if userID == "" || coupleID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"X-User-ID and X-Couple-ID headers are required",
			"6a7b8c9d-0e1f-4a2b-8c3d-4e5f6a7b8c9d")
		return "", "", false
	}
	return userID, coupleID, true
}
