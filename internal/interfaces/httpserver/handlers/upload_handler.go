package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/upload"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/responses"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

const (
	headerUploadLength   = "Upload-Length"
	headerUploadOffset   = "Upload-Offset"
	headerUploadMetadata = "Upload-Metadata"
)

// UploadHandler exposes the resumable upload endpoints.
type UploadHandler struct {
	cfg     *config.Config
	service *upload.Service
	log     zerolog.Logger
}

func NewUploadHandler(cfg *config.Config, service *upload.Service, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "upload-handler").Logger(),
	}
}

// Create opens a resumable upload session from the declared length and
// metadata headers.
func (h *UploadHandler) Create(c *gin.Context) {
	_, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	totalSize, err := strconv.ParseInt(c.GetHeader(headerUploadLength), 10, 64)
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"Upload-Length header is required and must be an integer",
			"5a6b7c8d-9e0f-4a1b-8c2d-3e4f5a6b7c8e")
		return
	}

	meta, err := upload.ParseMetadata(c.Request.Context(), c.GetHeader(headerUploadMetadata))
	if err != nil {
		responses.HandleError(c, err, "invalid upload metadata")
		return
	}
	if meta.CoupleID != coupleID {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"metadata couple id does not match caller",
			"1c2d3e4f-5a6b-4c7d-8e8f-9a0b1c2d3e4f")
		return
	}

	sess, err := h.service.Create(c.Request.Context(), meta, totalSize)
	if err != nil {
		responses.HandleError(c, err, "failed to create upload session")
		return
	}

	c.Header("Location", "/v1/uploads/"+sess.ID)
	c.Header(headerUploadOffset, "0")
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID})
}

// Append writes one chunk at the declared offset. When the chunk completes
// the declared length the upload finalizes inline and the outcome is
// reported in the response body.
func (h *UploadHandler) Append(c *gin.Context) {
	if _, _, ok := callerIdentity(c); !ok {
		return
	}

	offset, err := strconv.ParseInt(c.GetHeader(headerUploadOffset), 10, 64)
	if err != nil || offset < 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"Upload-Offset header is required and must be a non-negative integer",
			"7d8e9f0a-1b2c-4d3e-8f4a-5b6c7d8e9f0a")
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, h.cfg.MaxMediaBytes+1))
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"failed to read chunk body", "3f4a5b6c-7d8e-4f9a-8b0c-1d2e3f4a5b6c")
		return
	}

	result, err := h.service.Append(c.Request.Context(), c.Param("id"), offset, data)
	if err != nil {
		responses.HandleError(c, err, "failed to append chunk")
		return
	}

	c.Header(headerUploadOffset, strconv.FormatInt(result.Offset, 10))
	if !result.Completed {
		c.Status(http.StatusNoContent)
		return
	}

	resp := responses.UploadCompleteResponse{Offset: result.Offset, Completed: true}
	if result.Outcome != nil {
		if result.Outcome.Pipeline != nil {
			out := responses.BuildFileOutcome("", *result.Outcome.Pipeline)
			resp.Result = &out
		} else {
			resp.Role = result.Outcome.Role
			resp.Moment = result.Outcome.Moment
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Offset reports how many contiguous bytes the server holds, so a client
// resuming after an interruption knows where to continue.
func (h *UploadHandler) Offset(c *gin.Context) {
	if _, _, ok := callerIdentity(c); !ok {
		return
	}

	offset, err := h.service.Offset(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "failed to read upload offset")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header(headerUploadOffset, strconv.FormatInt(offset, 10))
	c.Status(http.StatusOK)
}
