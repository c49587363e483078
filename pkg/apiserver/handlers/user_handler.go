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
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/store/postgres"
)

type UserHandler struct {
	db       *postgres.Store
	users    *postgres.UserRepository
	recorder *activitylog.Recorder
	logger   *zap.Logger
}

func NewUserHandler(db *postgres.Store, users *postgres.UserRepository, recorder *activitylog.Recorder, logger *zap.Logger) *UserHandler {
	return &UserHandler{db: db, users: users, recorder: recorder, logger: logger}
}

type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func mapUser(user *model.User) userResponse {
	return userResponse{
		ID:     user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
		Status: string(user.Status),
	}
}

// List returns every user. ADMIN and SUPERADMIN only.
func (h *UserHandler) List(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	users, err := h.users.ListAllUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		respondInternal(c)
		return
	}

	response := make([]userResponse, 0, len(users))
	for i := range users {
		response = append(response, mapUser(&users[i]))
	}
	respond(c, http.StatusOK, response)
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *UserHandler) UpdateRole(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	role := model.Role(req.Role)
	if !role.Valid() {
		respondError(c, http.StatusBadRequest, "invalid role")
		return
	}
	// Only a superadmin may mint another superadmin.
	if role == model.RoleSuperadmin && requester.Role != model.RoleSuperadmin {
		respondError(c, http.StatusForbidden, "superadmin role required")
		return
	}

	h.mutateUser(c, userID, "role", map[string]interface{}{"role": role},
		"changed role to "+string(role))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus transitions a user's lifecycle state. Users are never
// hard-deleted; deactivation is the terminal operation.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	requester, _ := middleware.Requester(c)
	if !requester.Role.IsAdmin() {
		respondError(c, http.StatusForbidden, "admin role required")
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}
	status := model.UserStatus(req.Status)
	if !status.Valid() {
		respondError(c, http.StatusBadRequest, "invalid status")
		return
	}

	h.mutateUser(c, userID, "status", map[string]interface{}{"status": status},
		"changed status to "+string(status))
}

func (h *UserHandler) mutateUser(c *gin.Context, userID uuid.UUID, field string, updates map[string]interface{}, description string) {
	requester, _ := middleware.Requester(c)
	ctx := c.Request.Context()

	entry := &model.ActivityLog{
		Action:      model.LogUpdate,
		EntityType:  model.EntityUser,
		EntityID:    userID,
		Description: description,
		Metadata:    model.JSONB{"field": field},
		UserID:      requester.UserID,
		CompanyID:   requester.CompanyID,
	}
	err := h.db.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return h.recorder.Record(ctx, tx, entry)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to update user", zap.Error(err))
		respondInternal(c)
		return
	}
	h.recorder.Announce(ctx, entry)

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		h.logger.Error("failed to reload user", zap.Error(err))
		respondInternal(c)
		return
	}
	respond(c, http.StatusOK, mapUser(user))
}
