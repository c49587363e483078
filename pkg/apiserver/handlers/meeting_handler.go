package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/activitylog"
	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/store/postgres"
	"github.com/fasehq/fase-server/pkg/visibility"
)

// MeetingHandler covers key meetings and key people attached to a big rock.
type MeetingHandler struct {
	db       *postgres.Store
	rocks    *RockHandler
	recorder *activitylog.Recorder
	logger   *zap.Logger
}

func NewMeetingHandler(db *postgres.Store, rocks *RockHandler, recorder *activitylog.Recorder, logger *zap.Logger) *MeetingHandler {
	return &MeetingHandler{db: db, rocks: rocks, recorder: recorder, logger: logger}
}

type meetingCreateRequest struct {
	Title string    `json:"title" binding:"required"`
	Date  time.Time `json:"date" binding:"required"`
	Notes string    `json:"notes"`
}

func (h *MeetingHandler) CreateMeeting(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	rock, ok := h.rocks.loadMutable(c, requester)
	if !ok {
		return
	}

	var req meetingCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	meeting := &model.KeyMeeting{
		ID:        uuid.New(),
		BigRockID: rock.ID,
		Title:     req.Title,
		Date:      req.Date,
		Notes:     req.Notes,
	}

	if !h.persist(c, requester, model.LogCreate, model.EntityKeyMeeting, meeting.ID, "created key meeting "+meeting.Title, func(tx *gorm.DB) error {
		return tx.Create(meeting).Error
	}) {
		return
	}
	respond(c, http.StatusCreated, meeting)
}

type meetingUpdateRequest struct {
	Title *string    `json:"title"`
	Date  *time.Time `json:"date"`
	Notes *string    `json:"notes"`
}

func (h *MeetingHandler) UpdateMeeting(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	meeting, ok := h.loadMeeting(c, requester)
	if !ok {
		return
	}

	var req meetingUpdateRequest
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
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if !h.persist(c, requester, model.LogUpdate, model.EntityKeyMeeting, meeting.ID, "updated key meeting "+meeting.Title, func(tx *gorm.DB) error {
		return tx.Model(&model.KeyMeeting{}).Where("id = ?", meeting.ID).Updates(updates).Error
	}) {
		return
	}
	respond(c, http.StatusOK, gin.H{"updated": meeting.ID.String()})
}

func (h *MeetingHandler) DeleteMeeting(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	meeting, ok := h.loadMeeting(c, requester)
	if !ok {
		return
	}

	if !h.persist(c, requester, model.LogDelete, model.EntityKeyMeeting, meeting.ID, "deleted key meeting "+meeting.Title, func(tx *gorm.DB) error {
		return tx.Delete(&model.KeyMeeting{}, "id = ?", meeting.ID).Error
	}) {
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": meeting.ID.String()})
}

type personCreateRequest struct {
	Name      string `json:"name" binding:"required"`
	RoleTitle string `json:"role_title"`
	Notes     string `json:"notes"`
}

func (h *MeetingHandler) CreatePerson(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	rock, ok := h.rocks.loadMutable(c, requester)
	if !ok {
		return
	}

	var req personCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	person := &model.KeyPerson{
		ID:        uuid.New(),
		BigRockID: rock.ID,
		Name:      req.Name,
		RoleTitle: req.RoleTitle,
		Notes:     req.Notes,
	}

	if !h.persist(c, requester, model.LogCreate, model.EntityKeyPerson, person.ID, "added key person "+person.Name, func(tx *gorm.DB) error {
		return tx.Create(person).Error
	}) {
		return
	}
	respond(c, http.StatusCreated, person)
}

type personUpdateRequest struct {
	Name      *string `json:"name"`
	RoleTitle *string `json:"role_title"`
	Notes     *string `json:"notes"`
}

func (h *MeetingHandler) UpdatePerson(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	person, ok := h.loadPerson(c, requester)
	if !ok {
		return
	}

	var req personUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.RoleTitle != nil {
		updates["role_title"] = *req.RoleTitle
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if !h.persist(c, requester, model.LogUpdate, model.EntityKeyPerson, person.ID, "updated key person "+person.Name, func(tx *gorm.DB) error {
		return tx.Model(&model.KeyPerson{}).Where("id = ?", person.ID).Updates(updates).Error
	}) {
		return
	}
	respond(c, http.StatusOK, gin.H{"updated": person.ID.String()})
}

func (h *MeetingHandler) DeletePerson(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	person, ok := h.loadPerson(c, requester)
	if !ok {
		return
	}

	if !h.persist(c, requester, model.LogDelete, model.EntityKeyPerson, person.ID, "removed key person "+person.Name, func(tx *gorm.DB) error {
		return tx.Delete(&model.KeyPerson{}, "id = ?", person.ID).Error
	}) {
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": person.ID.String()})
}

func (h *MeetingHandler) persist(c *gin.Context, requester visibility.Requester, action model.LogAction, entityType model.EntityType, entityID uuid.UUID, description string, mutate func(*gorm.DB) error) bool {
	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mutate(tx); err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("mutation failed", zap.Error(err), zap.String("entity_type", string(entityType)))
		respondInternal(c)
		return false
	}
	h.recorder.Announce(ctx, entry)
	return true
}

func (h *MeetingHandler) loadMeeting(c *gin.Context, requester visibility.Requester) (*model.KeyMeeting, bool) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid key meeting id")
		return nil, false
	}

	ctx := c.Request.Context()
	var meeting model.KeyMeeting
	if err := h.db.DB().WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "key meeting not found")
			return nil, false
		}
		h.logger.Error("failed to load key meeting", zap.Error(err))
		respondInternal(c)
		return nil, false
	}

	if !h.authorize(c, requester, meeting.BigRockID) {
		return nil, false
	}
	return &meeting, true
}

func (h *MeetingHandler) loadPerson(c *gin.Context, requester visibility.Requester) (*model.KeyPerson, bool) {
	personID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid key person id")
		return nil, false
	}

	ctx := c.Request.Context()
	var person model.KeyPerson
	if err := h.db.DB().WithContext(ctx).First(&person, "id = ?", personID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "key person not found")
			return nil, false
		}
		h.logger.Error("failed to load key person", zap.Error(err))
		respondInternal(c)
		return nil, false
	}

	if !h.authorize(c, requester, person.BigRockID) {
		return nil, false
	}
	return &person, true
}

func (h *MeetingHandler) authorize(c *gin.Context, requester visibility.Requester, rockID uuid.UUID) bool {
	ctx := c.Request.Context()
	rock, err := h.rocks.loadRock(ctx, rockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "big rock not found")
			return false
		}
		h.logger.Error("failed to load big rock", zap.Error(err))
		respondInternal(c)
		return false
	}

	if !requester.Role.IsAdmin() && rock.CompanyID != requester.CompanyID {
		respondError(c, http.StatusForbidden, "access denied")
		return false
	}
	allowed, err := h.rocks.filter.CanView(ctx, requester, rock.UserID)
	if err != nil {
		h.logger.Error("failed to check visibility", zap.Error(err))
		respondInternal(c)
		return false
	}
	if !allowed {
		respondError(c, http.StatusForbidden, "access denied")
		return false
	}
	return true
}
