package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/moment"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/responses"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// MomentHandler exposes the shared-moment lifecycle endpoints.
type MomentHandler struct {
	cfg         *config.Config
	coordinator *moment.Coordinator
	log         zerolog.Logger
}

func NewMomentHandler(cfg *config.Config, coordinator *moment.Coordinator, log zerolog.Logger) *MomentHandler {
	return &MomentHandler{
		cfg:         cfg,
		coordinator: coordinator,
		log:         log.With().Str("component", "moment-handler").Logger(),
	}
}

// Create opens a new pending moment initiated by the caller.
func (h *MomentHandler) Create(c *gin.Context) {
	userID, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	m, err := h.coordinator.Create(c.Request.Context(), coupleID, userID)
	if err != nil {
		responses.HandleError(c, err, "failed to create moment")
		return
	}

	c.JSON(http.StatusCreated, responses.MomentResponse{Moment: m})
}

// Get returns the moment's current state.
func (h *MomentHandler) Get(c *gin.Context) {
	_, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	m, err := h.coordinator.Get(c.Request.Context(), coupleID, c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to get moment")
		return
	}

	c.JSON(http.StatusOK, responses.MomentResponse{Moment: m})
}

// Delete removes the moment and cascades to its media assets and blobs.
func (h *MomentHandler) Delete(c *gin.Context) {
	_, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	if err := h.coordinator.Delete(c.Request.Context(), coupleID, c.Param("id")); err != nil {
		responses.HandleError(c, err, "failed to delete moment")
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitPhoto applies the caller's contribution to the moment. The photo
// arrives either as a multipart "photo" part or as the raw request body.
func (h *MomentHandler) SubmitPhoto(c *gin.Context) {
	userID, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	photo, err := h.readPhoto(c)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"photo is required", "9a0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d")
		return
	}

	role, m, err := h.coordinator.SubmitPhoto(c.Request.Context(), coupleID, c.Param("id"), userID, photo)
	if err != nil {
		responses.HandleError(c, err, "failed to submit photo")
		return
	}

	c.JSON(http.StatusOK, responses.SubmitPhotoResponse{Role: role, Moment: m})
}

func (h *MomentHandler) readPhoto(c *gin.Context) ([]byte, error) {
	if header, err := c.FormFile("photo"); err == nil {
		return readPart(header)
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.cfg.MaxMediaBytes+1))
	if err != nil || len(data) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
