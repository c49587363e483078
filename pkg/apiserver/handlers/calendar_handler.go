package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/calendar"
)

type CalendarHandler struct {
	aggregator *calendar.Aggregator
	logger     *zap.Logger
}

func NewCalendarHandler(aggregator *calendar.Aggregator, logger *zap.Logger) *CalendarHandler {
	return &CalendarHandler{aggregator: aggregator, logger: logger}
}

// Get serves GET /calendar?view=day|week|month&date=2006-01-02. The date
// defaults to today; the view defaults to month.
func (h *CalendarHandler) Get(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	view := calendar.View(c.DefaultQuery("view", string(calendar.ViewMonth)))
	ref, ok := parseDate(c.Query("date"), time.Now().UTC())
	if !ok {
		respondError(c, http.StatusBadRequest, "date must use the YYYY-MM-DD form")
		return
	}

	result, err := h.aggregator.Aggregate(c.Request.Context(), requester, view, ref)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidView) {
			respondError(c, http.StatusBadRequest, "view must be day, week or month")
			return
		}
		h.logger.Error("failed to aggregate calendar", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, result)
}
