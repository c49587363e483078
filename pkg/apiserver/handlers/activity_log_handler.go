package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fasehq/fase-server/pkg/activitylog"
	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/eventbus"
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/visibility"
)

type ActivityLogHandler struct {
	service *activitylog.Service
	filter  *visibility.Filter
	bus     *eventbus.Bus
	logger  *zap.Logger
}

func NewActivityLogHandler(service *activitylog.Service, filter *visibility.Filter, bus *eventbus.Bus, logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{service: service, filter: filter, bus: bus, logger: logger}
}

// List serves GET /activity-logs with page/limit/entityType/action/userId
// filters, scoped to the requester's visibility set.
func (h *ActivityLogHandler) List(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	page, ok := parsePage(c.Query("page"))
	if !ok {
		respondError(c, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, ok := parseLimit(c.Query("limit"), activitylog.DefaultLimit, activitylog.MaxLimit)
	if !ok {
		respondError(c, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	filter := activitylog.Filter{Page: page, Limit: limit}

	if value := c.Query("entityType"); value != "" {
		entityType := model.EntityType(value)
		if !entityType.Valid() {
			respondError(c, http.StatusBadRequest, "invalid entityType")
			return
		}
		filter.EntityType = entityType
	}
	if value := c.Query("action"); value != "" {
		action := model.LogAction(value)
		if !action.Valid() {
			respondError(c, http.StatusBadRequest, "invalid action")
			return
		}
		filter.Action = action
	}
	if value := c.Query("userId"); value != "" {
		userID, err := uuid.Parse(value)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid userId")
			return
		}
		filter.UserID = &userID
	}

	result, err := h.service.GetActivityLogs(c.Request.Context(), requester, filter)
	if err != nil {
		if errors.Is(err, activitylog.ErrNotViewable) {
			respondError(c, http.StatusForbidden, "user is outside your visibility set")
			return
		}
		h.logger.Error("failed to query activity logs", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, result)
}

// ViewableUsers serves GET /activity-logs/viewable-users.
func (h *ActivityLogHandler) ViewableUsers(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	users, err := h.filter.ViewableUsers(c.Request.Context(), requester)
	if err != nil {
		h.logger.Error("failed to resolve viewable users", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, users)
}

// Stream serves GET /activity-logs/stream: a live SSE tail of the company's
// activity feed over the event bus. Entries arriving on the feed are already
// company-scoped; per-user visibility is fan-out filtered here.
func (h *ActivityLogHandler) Stream(c *gin.Context) {
	if h.bus == nil {
		respondError(c, http.StatusServiceUnavailable, "live feed not available")
		return
	}
	requester, _ := middleware.Requester(c)

	allowed, err := h.filter.ViewableUserIDs(c.Request.Context(), requester)
	if err != nil {
		h.logger.Error("failed to resolve visibility set", zap.Error(err))
		respondInternal(c)
		return
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id.String()] = struct{}{}
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := h.bus.Subscribe(c.Request.Context(), eventbus.ActivityChannel(requester.CompanyID.String()))

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			var payload eventbus.ActivityEvent
			if err := json.Unmarshal(event.Data, &payload); err != nil {
				continue
			}
			if _, ok := allowedSet[payload.UserID]; !ok {
				continue
			}
			c.SSEvent("activity", payload)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
