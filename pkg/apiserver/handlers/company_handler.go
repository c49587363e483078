package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/activitylog"
	"github.com/fasehq/fase-server/pkg/apiserver/middleware"
	"github.com/fasehq/fase-server/pkg/hierarchy"
	"github.com/fasehq/fase-server/pkg/metrics"
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/store/postgres"
)

type CompanyHandler struct {
	db          *postgres.Store
	memberships *postgres.MembershipRepository
	resolver    *hierarchy.Resolver
	recorder    *activitylog.Recorder
	logger      *zap.Logger
}

func NewCompanyHandler(db *postgres.Store, memberships *postgres.MembershipRepository, resolver *hierarchy.Resolver, recorder *activitylog.Recorder, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{db: db, memberships: memberships, resolver: resolver, recorder: recorder, logger: logger}
}

type companyCreateRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type companyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *CompanyHandler) Create(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	var req companyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	company := &model.Company{ID: uuid.New(), Name: req.Name, Slug: req.Slug}
	ctx := c.Request.Context()

	entry := &model.ActivityLog{
		Action:      model.LogCreate,
		EntityType:  model.EntityCompany,
		EntityID:    company.ID,
		Description: "created company " + company.Name,
		UserID:      requester.UserID,
		CompanyID:   company.ID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to create company", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusCreated, companyResponse{ID: company.ID.String(), Name: company.Name, Slug: company.Slug})
}

type memberResponse struct {
	UserID       string  `json:"user_id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
}

func (h *CompanyHandler) ListMembers(c *gin.Context) {
	requester, _ := middleware.Requester(c)

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid company id")
		return
	}
	// Non-admins may only inspect their own company.
	if !requester.Role.IsAdmin() && companyID != requester.CompanyID {
		respondError(c, http.StatusForbidden, "company access denied")
		return
	}

	members, err := h.memberships.ListMembers(c.Request.Context(), companyID)
	if err != nil {
		h.logger.Error("failed to list members", zap.Error(err))
		respondInternal(c)
		return
	}

	response := make([]memberResponse, 0, len(members))
	for _, member := range members {
		entry := memberResponse{UserID: member.UserID.String()}
		if member.User != nil {
			entry.Name = member.User.Name
			entry.Email = member.User.Email
		}
		if member.SupervisorID != nil {
			supervisorID := member.SupervisorID.String()
			entry.SupervisorID = &supervisorID
		}
		response = append(response, entry)
	}
	respond(c, http.StatusOK, response)
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

func (h *CompanyHandler) AddMember(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid company id")
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	userID := mustUUID(req.UserID)

	ctx := c.Request.Context()
	if err := h.db.DB().WithContext(ctx).First(&model.Company{}, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "company not found")
			return
		}
		h.logger.Error("failed to load company", zap.Error(err))
		respondInternal(c)
		return
	}
	if err := h.db.DB().WithContext(ctx).First(&model.User{}, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to load user", zap.Error(err))
		respondInternal(c)
		return
	}

	membership := &model.UserCompany{UserID: userID, CompanyID: companyID, AIContext: model.JSONB{}}
	entry := &model.ActivityLog{
		Action:      model.LogCreate,
		EntityType:  model.EntityMembership,
		EntityID:    userID,
		Description: "added member to company",
		UserID:      requester.UserID,
		CompanyID:   companyID,
	}
	err = h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(membership).Error; err != nil {
			return err
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		h.logger.Error("failed to add member", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	respond(c, http.StatusCreated, gin.H{"user_id": userID.String(), "company_id": companyID.String()})
}

type assignSupervisorRequest struct {
	SupervisorID string `json:"supervisor_id" binding:"required,uuid"`
}

// AssignSupervisor sets a member's direct supervisor. The hierarchy resolver
// runs the cycle check, the write and the audit entry in one transaction; a
// detected cycle is a validation failure, not a conflict.
func (h *CompanyHandler) AssignSupervisor(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid company id")
		return
	}
	targetUserID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var req assignSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	supervisorID := mustUUID(req.SupervisorID)

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityMembership,
		EntityID:    targetUserID,
		Description: "assigned supervisor",
		Metadata:    model.JSONB{"supervisor_id": supervisorID.String()},
		UserID:      requester.UserID,
		CompanyID:   companyID,
	}
	err = h.resolver.Assign(ctx, supervisorID, targetUserID, companyID, entry)
	if err != nil {
		switch {
		case errors.Is(err, hierarchy.ErrCycle):
			metrics.SupervisorAssignmentsRejected.Inc()
			respondError(c, http.StatusBadRequest, "assignment would create a supervision cycle")
		case errors.Is(err, hierarchy.ErrSelfSupervision):
			respondError(c, http.StatusBadRequest, "a user cannot supervise themselves")
		case errors.Is(err, hierarchy.ErrNotMember):
			respondError(c, http.StatusNotFound, "user is not a member of the company")
		default:
			h.logger.Error("failed to assign supervisor", zap.Error(err))
			respondInternal(c)
		}
		return
	}

	h.recorder.Announce(ctx, entry)
	respond(c, http.StatusOK, gin.H{"user_id": targetUserID.String(), "supervisor_id": supervisorID.String()})
}

func (h *CompanyHandler) ClearSupervisor(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid company id")
		return
	}
	targetUserID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx := c.Request.Context()
	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityMembership,
		EntityID:    targetUserID,
		Description: "cleared supervisor",
		UserID:      requester.UserID,
		CompanyID:   companyID,
	}
	if err := h.resolver.Clear(ctx, targetUserID, companyID, entry); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "membership not found")
			return
		}
		h.logger.Error("failed to clear supervisor", zap.Error(err))
		respondInternal(c)
		return
	}

	h.recorder.Announce(ctx, entry)
	respond(c, http.StatusOK, gin.H{"user_id": targetUserID.String()})
}
