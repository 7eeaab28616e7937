package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beccrm/middleware"
	"beccrm/models"
	"beccrm/utils"
)

func passwordRouter(repo *fakeRepo, currentUser uuid.UUID) *gin.Engine {
	h := NewPasswordHandler(repo)
	r := gin.New()
	r.POST("/password/setup", h.Setup)
	r.GET("/password/validate-token/:token", h.ValidateToken)
	r.POST("/password/initiate-reset", func(c *gin.Context) {
		c.Set(middleware.CtxUserID, currentUser)
		h.InitiateReset(c)
	})
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPasswordSetupFlow(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser(&models.User{
		Email:                 "new.staff@example.com",
		Role:                  models.RoleStaff,
		IsActive:              false,
		PasswordSetupRequired: true,
	})
	token := models.NewSetupToken(user.ID)
	require.NoError(t, repo.CreatePasswordResetToken(token))

	r := passwordRouter(repo, uuid.Nil)
	w := postJSON(t, r, "/password/setup", map[string]string{
		"token":            token.Token,
		"password":         "Sunfire2099",
		"password_confirm": "Sunfire2099",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	updated := repo.users[user.ID]
	assert.True(t, utils.VerifyPassword("Sunfire2099", updated.PasswordHash))
	assert.False(t, updated.PasswordSetupRequired)
	assert.True(t, updated.IsActive)
	assert.NotNil(t, updated.LastPasswordChange)
	assert.NotNil(t, repo.tokens[token.Token].UsedAt)

	// the token is single use
	w = postJSON(t, r, "/password/setup", map[string]string{
		"token":            token.Token,
		"password":         "Sunfire2099",
		"password_confirm": "Sunfire2099",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordSetupMismatch(t *testing.T) {
	repo := newFakeRepo()
	r := passwordRouter(repo, uuid.Nil)

	w := postJSON(t, r, "/password/setup", map[string]string{
		"token":            "whatever",
		"password":         "Sunfire2099",
		"password_confirm": "Moonrise88",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordSetupExpiredToken(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser(&models.User{Email: "old@example.com", Role: models.RoleStaff})
	token := models.NewSetupToken(user.ID)
	token.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.CreatePasswordResetToken(token))

	r := passwordRouter(repo, uuid.Nil)
	w := postJSON(t, r, "/password/setup", map[string]string{
		"token":            token.Token,
		"password":         "Sunfire2099",
		"password_confirm": "Sunfire2099",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPasswordSetupUnknownToken(t *testing.T) {
	repo := newFakeRepo()
	r := passwordRouter(repo, uuid.Nil)

	w := postJSON(t, r, "/password/setup", map[string]string{
		"token":            "no-such-token",
		"password":         "Sunfire2099",
		"password_confirm": "Sunfire2099",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateToken(t *testing.T) {
	repo := newFakeRepo()
	user := repo.addUser(&models.User{Email: "staff@example.com", Role: models.RoleStaff})
	token := models.NewResetToken(user.ID, uuid.New())
	require.NoError(t, repo.CreatePasswordResetToken(token))

	r := passwordRouter(repo, uuid.Nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/password/validate-token/"+token.Token, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["valid"])
	assert.Equal(t, models.TokenReset, resp["token_type"])
	assert.Equal(t, "staff@example.com", resp["user_email"])

	token.MarkUsed()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/password/validate-token/"+token.Token, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/password/validate-token/bogus", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitiateReset(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.addUser(&models.User{Email: "admin@example.com", Role: models.RoleAdmin})
	target := repo.addUser(&models.User{Email: "staff@example.com", Role: models.RoleStaff})

	r := passwordRouter(repo, admin.ID)
	w := postJSON(t, r, "/password/initiate-reset", map[string]string{"user_id": target.ID.String()})
	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, repo.tokens, 1)
	for _, tok := range repo.tokens {
		assert.Equal(t, target.ID, tok.UserID)
		assert.Equal(t, models.TokenReset, tok.TokenType)
		require.NotNil(t, tok.CreatedBy)
		assert.Equal(t, admin.ID, *tok.CreatedBy)
	}
}

func TestInitiateResetSelfRejected(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.addUser(&models.User{Email: "admin@example.com", Role: models.RoleAdmin})

	r := passwordRouter(repo, admin.ID)
	w := postJSON(t, r, "/password/initiate-reset", map[string]string{"user_id": admin.ID.String()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.tokens)
}

func TestInitiateResetUnknownUser(t *testing.T) {
	repo := newFakeRepo()
	admin := repo.addUser(&models.User{Email: "admin@example.com", Role: models.RoleAdmin})

	r := passwordRouter(repo, admin.ID)
	w := postJSON(t, r, "/password/initiate-reset", map[string]string{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
