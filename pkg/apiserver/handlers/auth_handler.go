package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/auth"
	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/store/postgres"
)

type AuthHandler struct {
	users       *postgres.UserRepository
	memberships *postgres.MembershipRepository
	tokens      *auth.TokenManager
	logger      *zap.Logger
}

func NewAuthHandler(users *postgres.UserRepository, memberships *postgres.MembershipRepository, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, memberships: memberships, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	CompanyID string `json:"company_id" binding:"required,uuid"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Login verifies credentials and company membership, then issues a JWT scoped
// to that company.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("failed to load user", zap.Error(err))
		respondInternal(c)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.Status == model.UserDeactivated {
		respondError(c, http.StatusForbidden, "account deactivated")
		return
	}

	companyID := mustUUID(req.CompanyID)
	if _, err := h.memberships.Membership(ctx, user.ID, companyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusForbidden, "not a member of the company")
			return
		}
		h.logger.Error("failed to load membership", zap.Error(err))
		respondInternal(c)
		return
	}

	token, err := h.tokens.Generate(user, companyID.String())
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		respondInternal(c)
		return
	}

	respond(c, http.StatusOK, loginResponse{Token: token, User: mapUser(user)})
}
