package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beccrm/config"
	"beccrm/middleware"
	"beccrm/models"
	"beccrm/utils"
)

// PasswordHandler covers the token-based setup and reset flows. The token
// link is handed to the user out of band, so /setup and /validate-token
// need no authentication.
type PasswordHandler struct {
	repo models.Repository
}

func NewPasswordHandler(repo models.Repository) *PasswordHandler {
	return &PasswordHandler{repo: repo}
}

type PasswordSetupRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

// Setup consumes a setup or reset token and stores the new password.
func (h *PasswordHandler) Setup(c *gin.Context) {
	var req PasswordSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Password != req.PasswordConfirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		return
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.repo.GetPasswordResetToken(req.Token)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid or expired token"})
		return
	}
	if !token.IsValid() {
		msg := "this password link has expired, ask an administrator for a new one"
		if token.UsedAt != nil {
			msg = "this password link has already been used"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	user, err := h.repo.GetUserByID(token.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set password"})
		return
	}

	now := time.Now().UTC()
	user.PasswordHash = hash
	user.PasswordSetupRequired = false
	user.LastPasswordChange = &now
	user.IsActive = true
	if err := h.repo.UpdateUser(user); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set password"})
		return
	}

	token.MarkUsed()
	if err := h.repo.UpdatePasswordResetToken(token); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set password"})
		return
	}

	utils.GetLogger().Info("password set via token", zap.String("email", user.Email))
	recordAudit(h.repo, c, "update", "user", user.ID.String(), map[string]string{"field": "password", "via": token.TokenType})

	c.JSON(http.StatusOK, gin.H{
		"message": "password set up successfully",
		"detail":  "you can now log in with your new password",
	})
}

type PasswordResetInitiateRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// InitiateReset creates a reset token for another user. Admin only; admins
// change their own password through /auth/change-password.
func (h *PasswordHandler) InitiateReset(c *gin.Context) {
	var req PasswordResetInitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := parseUUID(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	target, err := h.repo.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	currentID := middleware.CurrentUserID(c)
	if target.ID == currentID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot reset your own password, use change password instead"})
		return
	}

	token := models.NewResetToken(target.ID, currentID)
	if err := h.repo.CreatePasswordResetToken(token); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reset token"})
		return
	}

	utils.GetLogger().Info("password reset initiated",
		zap.String("target", target.Email),
		zap.String("by", currentID.String()))
	recordAudit(h.repo, c, "create", "password_reset", target.ID.String(), nil)

	resp := gin.H{
		"message": "password reset link generated for " + target.Email,
		"detail":  "share this link with the user, it is valid for 24 hours",
	}
	// Without an email integration the link is returned directly outside
	// of production.
	if !config.IsProduction() {
		resp["reset_link"] = config.AppConfig.FrontendBaseURL + "/setup-password?token=" + token.Token
	}
	c.JSON(http.StatusOK, resp)
}

// ValidateToken lets the password form check a token before submitting.
func (h *PasswordHandler) ValidateToken(c *gin.Context) {
	token, err := h.repo.GetPasswordResetToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid token"})
		return
	}
	if !token.IsValid() {
		msg := "this link has expired"
		if token.UsedAt != nil {
			msg = "this link has already been used"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	user, err := h.repo.GetUserByID(token.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"token_type": token.TokenType,
		"user_email": user.Email,
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})
}
