package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/katatrina/xsmb-live/internal/validator"
	"github.com/rs/zerolog/log"
)

type drawQuery struct {
	Date     string
	Station  string
	Simulate bool
}

// parseDrawQuery đọc và kiểm tra các tham số date, station, simulate.
// A missing date means today in the service calendar.
func (server *Server) parseDrawQuery(c *gin.Context) (drawQuery, []*FieldViolation) {
	var (
		query      drawQuery
		violations []*FieldViolation
	)

	now := server.streamService.Today()
	if raw := c.Query("date"); raw != "" {
		date, err := validator.ParseDrawDate(raw, now, server.location)
		if err != nil {
			violations = append(violations, fieldViolation("date", err))
		} else {
			query.Date = lottery.FormatDate(date)
		}
	} else {
		query.Date = lottery.FormatDate(now)
	}

	station, err := validator.NormalizeStation(c.Query("station"))
	if err != nil {
		violations = append(violations, fieldViolation("station", err))
	}
	query.Station = station

	if raw := c.Query("simulate"); raw != "" {
		simulate, err := strconv.ParseBool(raw)
		if err != nil {
			violations = append(violations, fieldViolation("simulate", err))
		}
		query.Simulate = simulate
	}

	return query, violations
}

// getInitialResults trả về toàn bộ các giải của ngày quay, giải chưa quay mang giá trị "...".
func (server *Server) getInitialResults(c *gin.Context) {
	query, violations := server.parseDrawQuery(c)
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, failedValidationError(violations))
		return
	}

	snapshot, err := server.streamService.Snapshot(c, query.Date, query.Station)
	if err != nil {
		log.Error().Err(err).Str("draw_date", query.Date).Msg("failed to build initial results")
		c.JSON(http.StatusInternalServerError, errorResponse(ErrTryAgainLater))
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (server *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, 2*time.Second)
	defer cancel()

	if err := server.health.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
