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
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/store/postgres"
	"github.com/fasehq/fase-server/pkg/visibility"
)

// TaskHandler covers TARs and their activities. Access control always
// resolves through the owning big rock.
type TaskHandler struct {
	db       *postgres.Store
	rocks    *RockHandler
	recorder *activitylog.Recorder
	logger   *zap.Logger
}

func NewTaskHandler(db *postgres.Store, rocks *RockHandler, recorder *activitylog.Recorder, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{db: db, rocks: rocks, recorder: recorder, logger: logger}
}

type tarCreateRequest struct {
	Title   string    `json:"title" binding:"required"`
	DueDate time.Time `json:"due_date" binding:"required"`
}

type tarUpdateRequest struct {
	Title   *string    `json:"title"`
	DueDate *time.Time `json:"due_date"`
}

func (h *TaskHandler) CreateTAR(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	rock, ok := h.rocks.loadMutable(c, requester)
	if !ok {
		return
	}

	var req tarCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	tar := &model.TAR{
		ID:        uuid.New(),
		BigRockID: rock.ID,
		Title:     req.Title,
		DueDate:   req.DueDate,
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogCreate,
		EntityType:  model.EntityTAR,
		EntityID:    tar.ID,
		Description: "created TAR " + tar.Title,
		Metadata:    model.JSONB{"big_rock_id": rock.ID.String()},
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tar).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to create TAR", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusCreated, tar)
}

func (h *TaskHandler) UpdateTAR(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	tar, _, ok := h.loadTAR(c, requester)
	if !ok {
		return
	}

	var req tarUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityTAR,
		EntityID:    tar.ID,
		Description: "updated TAR " + tar.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TAR{}).Where("id = ?", tar.ID).Updates(updates).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to update TAR", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusOK, gin.H{"updated": tar.ID.String()})
}

func (h *TaskHandler) DeleteTAR(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	tar, _, ok := h.loadTAR(c, requester)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogDelete,
		EntityType:  model.EntityTAR,
		EntityID:    tar.ID,
		Description: "deleted TAR " + tar.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tar_id = ?", tar.ID).Delete(&model.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.TAR{}, "id = ?", tar.ID).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to delete TAR", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusOK, gin.H{"deleted": tar.ID.String()})
}

// CompleteTAR marks a TAR done and feeds the gamification engine. Completing
// an already-completed TAR is a no-op that awards nothing.
func (h *TaskHandler) CompleteTAR(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	tar, rock, ok := h.loadTAR(c, requester)
	if !ok {
		return
	}
	if tar.Completed {
		respond(c, http.StatusOK, tar)
		return
	}

	now := time.Now().UTC()
	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityTAR,
		EntityID:    tar.ID,
		Description: "completed TAR " + tar.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.TAR{}).Where("id = ?", tar.ID).Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": &now,
			"updated_at":   now,
		}).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to complete TAR", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	h.rocks.awardEvent(c, rock.UserID, rock.CompanyID, gamification.EventTARCompleted)

	tar.Completed = true
	tar.CompletedAt = &now
	respond(c, http.StatusOK, tar)
}

type activityCreateRequest struct {
	Title string    `json:"title" binding:"required"`
	Date  time.Time `json:"date" binding:"required"`
}

func (h *TaskHandler) CreateActivity(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	tar, _, ok := h.loadTAR(c, requester)
	if !ok {
		return
	}

	var req activityCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	activity := &model.Activity{
		ID:    uuid.New(),
		TARID: tar.ID,
		Title: req.Title,
		Date:  req.Date,
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogCreate,
		EntityType:  model.EntityActivity,
		EntityID:    activity.ID,
		Description: "created activity " + activity.Title,
		Metadata:    model.JSONB{"tar_id": tar.ID.String()},
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(activity).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to create activity", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusCreated, activity)
}

type activityUpdateRequest struct {
	Title *string    `json:"title"`
	Date  *time.Time `json:"date"`
}

func (h *TaskHandler) UpdateActivity(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	activity, _, ok := h.loadActivity(c, requester)
	if !ok {
		return
	}

	var req activityUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Date != nil {
		updates["date"] = *req.Date
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityActivity,
		EntityID:    activity.ID,
		Description: "updated activity " + activity.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Activity{}).Where("id = ?", activity.ID).Updates(updates).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to update activity", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusOK, gin.H{"updated": activity.ID.String()})
}

// CompleteActivity marks an activity done and counts it as the daily
// qualifying action for the owner's streak.
func (h *TaskHandler) CompleteActivity(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	activity, rock, ok := h.loadActivity(c, requester)
	if !ok {
		return
	}
	if activity.Completed {
		respond(c, http.StatusOK, activity)
		return
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityActivity,
		EntityID:    activity.ID,
		Description: "completed activity " + activity.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Activity{}).Where("id = ?", activity.ID).Updates(map[string]interface{}{
			"completed":  true,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to complete activity", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	h.rocks.awardEvent(c, rock.UserID, rock.CompanyID, gamification.EventActivityLogged)

	activity.Completed = true
	respond(c, http.StatusOK, activity)
}

func (h *TaskHandler) DeleteActivity(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	activity, _, ok := h.loadActivity(c, requester)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogDelete,
		EntityType:  model.EntityActivity,
		EntityID:    activity.ID,
		Description: "deleted activity " + activity.Title,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Activity{}, "id = ?", activity.ID).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to delete activity", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusOK, gin.H{"deleted": activity.ID.String()})
}

// loadTAR resolves :id to a TAR and authorizes through its big rock.
func (h *TaskHandler) loadTAR(c *gin.Context, requester visibility.Requester) (*model.TAR, *model.BigRock, bool) {
	tarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid TAR id")
		return nil, nil, false
	}

	ctx := c.Request.Context()
	var tar model.TAR
	if err := h.db.DB().WithContext(ctx).First(&tar, "id = ?", tarID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "TAR not found")
			return nil, nil, false
		}
		h.logger.Error("failed to load TAR", zap.Error(err))
		respondInternal(c)
		return nil, nil, false
	}

	rock, ok := h.authorizeRock(c, ctx, requester, tar.BigRockID)
	if !ok {
		return nil, nil, false
	}
	return &tar, rock, true
}

func (h *TaskHandler) loadActivity(c *gin.Context, requester visibility.Requester) (*model.Activity, *model.BigRock, bool) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid activity id")
		return nil, nil, false
	}

	ctx := c.Request.Context()
	var activity model.Activity
	if err := h.db.DB().WithContext(ctx).Preload("TAR").First(&activity, "id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "activity not found")
			return nil, nil, false
		}
		h.logger.Error("failed to load activity", zap.Error(err))
		respondInternal(c)
		return nil, nil, false
	}
	if activity.TAR == nil {
		respondError(c, http.StatusNotFound, "activity not found")
		return nil, nil, false
	}

	rock, ok := h.authorizeRock(c, ctx, requester, activity.TAR.BigRockID)
	if !ok {
		return nil, nil, false
	}
	return &activity, rock, true
}

func (h *TaskHandler) authorizeRock(c *gin.Context, ctx context.Context, requester visibility.Requester, rockID uuid.UUID) (*model.BigRock, bool) {
	rock, err := h.rocks.loadRock(ctx, rockID)
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
		respondError(c, http.StatusForbidden, "access denied")
		return nil, false
	}
	allowed, err := h.rocks.filter.CanView(ctx, requester, rock.UserID)
	if err != nil {
		h.logger.Error("failed to check visibility", zap.Error(err))
		respondInternal(c)
		return nil, false
	}
	if !allowed {
		respondError(c, http.StatusForbidden, "access denied")
		return nil, false
	}
	return rock, true
}
