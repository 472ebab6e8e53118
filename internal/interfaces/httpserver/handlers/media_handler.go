package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/duetapp/duet-server/internal/config"
	"github.com/duetapp/duet-server/internal/domain/media"
	"github.com/duetapp/duet-server/internal/interfaces/httpserver/responses"
	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// MediaHandler exposes the single-shot ingest endpoint.
type MediaHandler struct {
	cfg      *config.Config
	pipeline *media.Service
	log      zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, pipeline *media.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:      cfg,
		pipeline: pipeline,
		log:      log.With().Str("component", "media-handler").Logger(),
	}
}

// Ingest accepts a multipart batch under the "files" field and runs each
// file through the pipeline independently. One bad file never fails the
// batch; its outcome is reported alongside the rest. A single photo may be
// accompanied by a "live_video" part stored next to it.
func (h *MediaHandler) Ingest(c *gin.Context) {
	userID, coupleID, ok := callerIdentity(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"request is not valid multipart", "1d2e3f4a-5b6c-4d7e-8f9a-0b1c2d3e4f5a")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"at least one file is required", "8e9f0a1b-2c3d-4e4f-8a5b-6c7d8e9f0a1b")
		return
	}

	attachTo := c.PostForm("context")
	targetID := c.PostForm("target_id")
	if attachTo != "" && attachTo != "memory" && attachTo != "moment" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"context must be memory or moment", "4f5a6b7c-8d9e-4f0a-8b1c-2d3e4f5a6b7c")
		return
	}
	if attachTo != "" && targetID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"target_id is required with context", "0b1c2d3e-4f5a-4b6c-8d7e-8f9a0b1c2d3e")
		return
	}

	var pairedVideo []byte
	if videos := form.File["live_video"]; len(videos) > 0 {
		if len(files) != 1 {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
				"live_video is only valid with a single photo", "7c8d9e0f-1a2b-4c3d-8e4f-5a6b7c8d9e0f")
			return
		}
		pairedVideo, err = readPart(videos[0])
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
				"failed to read live_video", "3e4f5a6b-7c8d-4e9f-8a0b-1c2d3e4f5a6b")
			return
		}
	}

	results := make([]responses.FileOutcome, 0, len(files))
	for _, header := range files {
		data, rerr := readPart(header)
		if rerr != nil {
			h.log.Warn().Err(rerr).Str("filename", header.Filename).Msg("failed to read part")
			results = append(results, responses.FileOutcome{
				Filename: header.Filename,
				Outcome:  string(media.OutcomeFailed),
				Error:    "failed to read file",
			})
			continue
		}

		pctx := media.Context{
			CoupleID:     coupleID,
			UserID:       userID,
			OriginalName: header.Filename,
		}
		switch attachTo {
		case "memory":
			pctx.MemoryID = targetID
		case "moment":
			pctx.MomentID = targetID
		}

		res := h.pipeline.Process(c.Request.Context(), data, pairedVideo, pctx)
		results = append(results, responses.BuildFileOutcome(header.Filename, res))
	}

	c.JSON(http.StatusOK, responses.IngestResponse{Results: results})
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
