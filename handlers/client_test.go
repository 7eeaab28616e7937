package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beccrm/models"
)

func clientRouter(repo *fakeRepo) *gin.Engine {
	h := NewClientHandler(repo, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/clients", h.CreateClient)
	r.GET("/clients/:id", h.GetClient)
	return r
}

func TestCreateClient(t *testing.T) {
	repo := newFakeRepo()

	body, _ := json.Marshal(map[string]interface{}{
		"first_name":    "Jordan",
		"last_name":     "Reyes",
		"email":         "jordan@example.com",
		"phone":         "6615550142",
		"date_of_birth": "2008-04-12",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	clientRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Client
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Jordan", created.FirstName)
	assert.NotNil(t, created.DateOfBirth)
	assert.Len(t, repo.clients, 1)
	require.Len(t, repo.auditEntries, 1)
	assert.Equal(t, "create", repo.auditEntries[0].Action)
	assert.Equal(t, "client", repo.auditEntries[0].Entity)
	assert.Nil(t, repo.auditEntries[0].ActorUserID)
}

func TestCreateClientRequiresName(t *testing.T) {
	repo := newFakeRepo()

	body, _ := json.Marshal(map[string]string{"first_name": "OnlyFirst"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	clientRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.clients)
}

func TestCreateClientRejectsBadDate(t *testing.T) {
	repo := newFakeRepo()

	body, _ := json.Marshal(map[string]string{
		"first_name":    "Jordan",
		"last_name":     "Reyes",
		"date_of_birth": "04/12/2008",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	clientRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateClientDuplicateConflict(t *testing.T) {
	repo := newFakeRepo()
	existing := repo.addClient(&models.Client{
		FirstName: "Jordan",
		LastName:  "Reyes",
		Email:     "jordan@example.com",
	})
	repo.duplicate = existing

	body, _ := json.Marshal(map[string]string{
		"first_name": "Jordan",
		"last_name":  "Reyes",
		"email":      "jordan@example.com",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
	clientRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, existing.ID.String(), resp["existing_client_id"])
	assert.Len(t, repo.clients, 1)
}

func TestGetClientNotFound(t *testing.T) {
	repo := newFakeRepo()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clients/0b36aa92-6c70-4f24-9856-0e2b301e263c", nil)
	clientRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetClientBadID(t *testing.T) {
	repo := newFakeRepo()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clients/not-a-uuid", nil)
	clientRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
