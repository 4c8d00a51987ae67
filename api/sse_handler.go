package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// sseWriter writes Server-Sent Events onto a gin response and flushes each one.
type sseWriter struct {
	w gin.ResponseWriter
}

func (s sseWriter) WriteEvent(name string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s sseWriter) WriteComment(comment string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", comment); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func writeSSEHeaders(c *gin.Context) {
	// Thiết lập header SSE
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

// streamDrawEvents mở luồng SSE của một ngày quay.
// Each event is named after the field and carries
// {<field>: value, drawDate, tentinh, tinh, year, month}. With simulate=true the
// mock draw is replayed and the stream ends; otherwise it stays open until the
// client disconnects.
func (server *Server) streamDrawEvents(c *gin.Context) {
	query, violations := server.parseDrawQuery(c)
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, failedValidationError(violations))
		return
	}

	ctx := c.Request.Context()
	session := server.streamService.NewSession(query.Date, query.Station, sseWriter{w: c.Writer})
	logger := log.With().Str("session_id", session.ID).Str("draw_date", query.Date).Logger()

	if query.Simulate {
		writeSSEHeaders(c)
		if err := session.Replay(ctx); err != nil {
			logger.Warn().Err(err).Msg("simulated stream ended with error")
		}
		return
	}

	if err := session.Open(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to open stream")
		c.JSON(http.StatusInternalServerError, errorResponse(ErrTryAgainLater))
		return
	}

	writeSSEHeaders(c)
	if err := session.Run(ctx); err != nil {
		logger.Debug().Err(err).Msg("stream ended with error")
	}
}
