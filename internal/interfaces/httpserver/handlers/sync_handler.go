package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	syncdomain "github.com/duetapp/duet-server/internal/domain/sync"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/responses"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// SyncHandler is the server side of the client outbox flush.
type SyncHandler struct {
	service *syncdomain.Service
	log     zerolog.Logger
}

func NewSyncHandler(service *syncdomain.Service, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		log:     log.With().Str("component", "sync-handler").Logger(),
	}
}

type syncRequest struct {
	Actions []syncdomain.Action `json:"actions" binding:"required"`
}

// Apply runs an ordered action batch. The ack is all-or-nothing: any
// failure returns an error status and the client keeps its queue.
func (h *SyncHandler) Apply(c *gin.Context) {
	_, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"request body must contain an actions array",
			"2d3e4f5a-6b7c-4d8e-8f9a-0b1c2d3e4f5b")
		return
	}

	applied, err := h.service.Apply(c.Request.Context(), coupleID, req.Actions)
	if err != nil {
		h.log.Warn().Err(err).Int("applied", applied).Msg("sync batch failed")
		responses.HandleError(c, err, "failed to apply action batch")
		return
	}

	c.JSON(http.StatusOK, responses.SyncResponse{Applied: applied})
}
