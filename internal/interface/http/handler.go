package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

// Handler wires the HTTP transport to the digest service.
type Handler struct {
	svc    digest.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc digest.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

type resultResponse struct {
	Success bool `json:"success"`
	digest.Result
}

type listResponse struct {
	Success   bool            `json:"success"`
	Summaries []digest.Result `json:"summaries"`
}

// Summarize handles the sync summarization endpoint.
func (h *Handler) Summarize(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	result, err := h.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resultResponse{Success: true, Result: result})
}

// SummarizeStream streams pipeline progress using Server-Sent Events.
func (h *Handler) SummarizeStream(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	stream, err := h.svc.StreamSummary(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	// The server WriteTimeout covers the whole response; a stream ends on its
	// own or when the client leaves.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("stream write deadline not cleared", "error", err)
	}

	headers := c.Writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for event := range stream {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("marshal stream event failed", "type", event.Type, "error", err)
			continue
		}
		if _, err := c.Writer.Write(sseFrame(payload)); err != nil {
			h.logger.Info("stream client disconnected", "error", err)
			return
		}
		flusher.Flush()
	}
}

// GetSummary returns one stored result.
func (h *Handler) GetSummary(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resultResponse{Success: true, Result: result})
}

// ListSummaries returns the most recent results, newest first.
func (h *Handler) ListSummaries(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}

	results, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if results == nil {
		results = []digest.Result{}
	}
	c.JSON(http.StatusOK, listResponse{Success: true, Summaries: results})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bindRequest(c *gin.Context) (digest.Request, bool) {
	var req digest.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httpErr := NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "request body must be a JSON object with content, mode and inputType", err)
		httpErr.Stage = string(digest.StageValidating)
		abortWithError(c, httpErr)
		return digest.Request{}, false
	}
	return req, true
}

func sseFrame(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	return append(frame, "\n\n"...)
}
