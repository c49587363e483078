package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/gamification"
	"github.com/fasehq/fase-server/pkg/metrics"
)

type GamificationHandler struct {
	engine *gamification.Engine
	logger *zap.Logger
}

func NewGamificationHandler(engine *gamification.Engine, logger *zap.Logger) *GamificationHandler {
	return &GamificationHandler{engine: engine, logger: logger}
}

func (h *GamificationHandler) Me(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	profile, err := h.engine.GetProfile(c.Request.Context(), requester.UserID, requester.CompanyID)
	if err != nil {
		h.logger.Error("failed to load gamification profile", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, profile)
}

func (h *GamificationHandler) Leaderboard(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	limit, ok := parseLimit(c.Query("limit"), 10, 100)
	if !ok {
		respondError(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	entries, err := h.engine.Top(c.Request.Context(), requester.CompanyID, limit)
	if err != nil {
		h.logger.Error("failed to load leaderboard", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, entries)
}

// WeeklyReview records the weekly review as a qualifying gamification event
// for the requester.
func (h *GamificationHandler) WeeklyReview(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	award, err := h.engine.RecordEvent(c.Request.Context(), requester.UserID, requester.CompanyID, gamification.EventWeeklyReview, time.Now())
	if err != nil {
		h.logger.Error("failed to record weekly review", zap.Error(err))
		respondInternal(c)
		return
	}
	metrics.PointsAwarded.WithLabelValues(string(gamification.EventWeeklyReview)).Add(float64(award.PointsAdded))
	for _, code := range award.NewMedals {
		metrics.MedalsAwarded.WithLabelValues(string(code)).Inc()
	}

	respond(c, http.StatusOK, award)
}
