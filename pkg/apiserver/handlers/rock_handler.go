package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/activitylog"
	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/gamification"
	"github.com/fasehq/fase-server/pkg/metrics"
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/store/postgres"
	"github.com/fasehq/fase-server/pkg/visibility"
)

type RockHandler struct {
	db       *postgres.Store
	filter   *visibility.Filter
	recorder *activitylog.Recorder
	engine   *gamification.Engine
	logger   *zap.Logger
}

func NewRockHandler(db *postgres.Store, filter *visibility.Filter, recorder *activitylog.Recorder, engine *gamification.Engine, logger *zap.Logger) *RockHandler {
	return &RockHandler{db: db, filter: filter, recorder: recorder, engine: engine, logger: logger}
}

type rockCreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Month       string `json:"month" binding:"required"`
	Category    string `json:"category" binding:"required"`
}

type rockUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type rockResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Month       string `json:"month"`
	Category    string `json:"category"`
	Completed   bool   `json:"completed"`
}

func mapRock(rock *model.BigRock) rockResponse {
	return rockResponse{
		ID:          rock.ID.String(),
		UserID:      rock.UserID.String(),
		CompanyID:   rock.CompanyID.String(),
		Title:       rock.Title,
		Description: rock.Description,
		Month:       rock.Month,
		Category:    string(rock.Category),
		Completed:   rock.Completed,
	}
}

func (h *RockHandler) Create(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	var req rockCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		respondError(c, http.StatusBadRequest, "month must use the YYYY-MM form")
		return
	}
	category := model.Category(req.Category)
	if !category.Valid() {
		respondError(c, http.StatusBadRequest, "invalid category")
		return
	}

	rock := &model.BigRock{
		ID:          uuid.New(),
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
		Title:       req.Title,
		Description: req.Description,
		Month:       req.Month,
		Category:    category,
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogCreate,
		EntityType:  model.EntityBigRock,
		EntityID:    rock.ID,
		Description: "created big rock " + rock.Title,
		Metadata:    model.JSONB{"month": rock.Month, "category": string(rock.Category)},
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rock).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to create big rock", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusCreated, mapRock(rock))
}

// List returns big rocks for a viewable user (default: the requester),
// optionally narrowed to one month.
func (h *RockHandler) List(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	ctx := c.Request.Context()

	ownerID := requester.UserID
	if value := c.Query("userId"); value != "" {
		parsed, err := uuid.Parse(value)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid userId")
			return
		}
		viewable, err := h.filter.CanView(ctx, requester, parsed)
		if err != nil {
			h.logger.Error("failed to check visibility", zap.Error(err))
			respondInternal(c)
			return
		}
		if !viewable {
			respondError(c, http.StatusForbidden, "user is outside your visibility set")
			return
		}
		ownerID = parsed
	}

	query := h.db.DB().WithContext(ctx).
		Where("user_id = ? AND company_id = ?", ownerID, requester.CompanyID)
	if month := c.Query("month"); month != "" {
		query = query.Where("month = ?", month)
	}

	var rocks []model.BigRock
	if err := query.Order("created_at ASC").Find(&rocks).Error; err != nil {
		h.logger.Error("failed to list big rocks", zap.Error(err))
		respondInternal(c)
		return
	}

	response := make([]rockResponse, 0, len(rocks))
	for i := range rocks {
		response = append(response, mapRock(&rocks[i]))
	}
	respond(c, http.StatusOK, response)
}

func (h *RockHandler) Get(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	ctx := c.Request.Context()

	rock, ok := h.loadViewable(c, requester)
	if !ok {
		return
	}

	if err := h.db.DB().WithContext(ctx).
		Preload("TARs.Activities").
		Preload("KeyMeetings").
		Preload("KeyPeople").
		First(rock, "id = ?", rock.ID).Error; err != nil {
		h.logger.Error("failed to load big rock detail", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, rock)
}

func (h *RockHandler) Update(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	ctx := c.Request.Context()

	rock, ok := h.loadMutable(c, requester)
	if !ok {
		return
	}

	var req rockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	completing := req.Completed != nil && *req.Completed && !rock.Completed
	if req.Completed != nil {
		updates["completed"] = *req.Completed
	}

	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityBigRock,
		EntityID:    rock.ID,
		Description: "updated big rock " + rock.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.BigRock{}).Where("id = ?", rock.ID).Updates(updates).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to update big rock", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	if completing {
		h.awardEvent(c, rock.UserID, rock.CompanyID, gamification.EventBigRockCompleted)
	}

	reloaded, err := h.loadRock(ctx, rock.ID)
	if err != nil {
		respondInternal(c)
		return
	}
	respond(c, http.StatusOK, mapRock(reloaded))
}

// Delete removes a big rock with all its TARs, activities, key meetings and
// key people in one transaction.
func (h *RockHandler) Delete(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	ctx := c.Request.Context()

	rock, ok := h.loadMutable(c, requester)
	if !ok {
		return
	}

	entry := &model.ActivityLog{
		Action:      model.LogDelete,
		EntityType:  model.EntityBigRock,
		EntityID:    rock.ID,
		Description: "deleted big rock " + rock.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tarIDs []uuid.UUID
		if err := tx.Model(&model.TAR{}).Where("big_rock_id = ?", rock.ID).Pluck("id", &tarIDs).Error; err != nil {
			return err
		}
		if len(tarIDs) > 0 {
			if err := tx.Where("tar_id IN ?", tarIDs).Delete(&model.Activity{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("big_rock_id = ?", rock.ID).Delete(&model.TAR{}).Error; err != nil {
			return err
		}
		if err := tx.Where("big_rock_id = ?", rock.ID).Delete(&model.KeyMeeting{}).Error; err != nil {
			return err
		}
		if err := tx.Where("big_rock_id = ?", rock.ID).Delete(&model.KeyPerson{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.BigRock{}, "id = ?", rock.ID).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to delete big rock", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusOK, gin.H{"deleted": rock.ID.String()})
}

func (h *RockHandler) loadRock(ctx context.Context, id uuid.UUID) (*model.BigRock, error) {
	var rock model.BigRock
	if err := h.db.DB().WithContext(ctx).First(&rock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rock, nil
}

// loadViewable resolves :id and checks access against the visibility filter.
// It writes the error response itself when access is denied. Mutation rights
// coincide with the visibility set (self, direct supervisor, admin), so
// loadMutable is an alias kept for intent at call sites.
func (h *RockHandler) loadViewable(c *gin.Context, requester visibility.Requester) (*model.BigRock, bool) {
	rockID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid big rock id")
		return nil, false
	}

	ctx := c.Request.Context()
	rock, err := h.loadRock(ctx, rockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "big rock not found")
			return nil, false
		}
		h.logger.Error("failed to load big rock", zap.Error(err))
		respondInternal(c)
		return nil, false
	}

	if !requester.Role.IsAdmin() && rock.CompanyID != requester.CompanyID {
		respondError(c, http.StatusForbidden, "big rock access denied")
		return nil, false
	}
	allowed, err := h.filter.CanView(ctx, requester, rock.UserID)
	if err != nil {
		h.logger.Error("failed to check visibility", zap.Error(err))
		respondInternal(c)
		return nil, false
	}
	if !allowed {
		respondError(c, http.StatusForbidden, "big rock access denied")
		return nil, false
	}

	return rock, true
}

func (h *RockHandler) loadMutable(c *gin.Context, requester visibility.Requester) (*model.BigRock, bool) {
	return h.loadViewable(c, requester)
}

func (h *RockHandler) awardEvent(c *gin.Context, userID, companyID uuid.UUID, kind gamification.EventKind) {
	award, err := h.engine.RecordEvent(c.Request.Context(), userID, companyID, kind, time.Now())
	if err != nil {
		h.logger.Warn("failed to record gamification event", zap.Error(err), zap.String("event", string(kind)))
		return
	}
	metrics.PointsAwarded.WithLabelValues(string(kind)).Add(float64(award.PointsAdded))
	for _, code := range award.NewMedals {
		metrics.MedalsAwarded.WithLabelValues(string(code)).Inc()
	}
}
