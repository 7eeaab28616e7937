package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beccrm/models"
)

func membershipRouter(repo *fakeRepo) *gin.Engine {
	h := NewMembershipHandler(repo, nil)
	r := gin.New()
	r.POST("/memberships", h.CreateMembership)
	return r
}

func postMembership(t *testing.T, repo *fakeRepo, payload map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/memberships", bytes.NewReader(body))
	membershipRouter(repo).ServeHTTP(w, req)
	return w
}

func TestCreateMembership(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{FirstName: "Sam", LastName: "Okafor"})

	today := time.Now().Format("2006-01-02")
	end := time.Now().AddDate(0, 1, 0).Format("2006-01-02")

	w := postMembership(t, repo, map[string]string{
		"client_id": client.ID.String(),
		"plan_code": "unlimited",
		"starts_on": today,
		"ends_on":   end,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var view struct {
		models.Membership
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, models.StatusActive, view.Status)
	assert.Len(t, repo.memberships, 1)
}

func TestCreateMembershipUnknownPlan(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{FirstName: "Sam", LastName: "Okafor"})

	w := postMembership(t, repo, map[string]string{
		"client_id": client.ID.String(),
		"plan_code": "gold_tier",
		"starts_on": "2026-09-01",
		"ends_on":   "2026-09-30",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.memberships)
}

func TestCreateMembershipEndsBeforeStarts(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{FirstName: "Sam", LastName: "Okafor"})

	w := postMembership(t, repo, map[string]string{
		"client_id": client.ID.String(),
		"plan_code": "unlimited",
		"starts_on": "2026-09-30",
		"ends_on":   "2026-09-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.memberships)
}

func TestCreateMembershipSameDayRejected(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{FirstName: "Sam", LastName: "Okafor"})

	w := postMembership(t, repo, map[string]string{
		"client_id": client.ID.String(),
		"plan_code": "unlimited",
		"starts_on": "2026-09-01",
		"ends_on":   "2026-09-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.memberships)
}

func TestCreateMembershipOverlapRejected(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{FirstName: "Sam", LastName: "Okafor"})
	repo.overlap = repo.addMembership(&models.Membership{
		ClientID: client.ID,
		PlanCode: "unlimited",
		StartsOn: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC),
	})

	w := postMembership(t, repo, map[string]string{
		"client_id": client.ID.String(),
		"plan_code": "10_hours",
		"starts_on": "2026-09-15",
		"ends_on":   "2026-10-15",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, repo.overlap.ID.String(), resp["overlapping_membership"])
}

func TestCreateMembershipUnknownClient(t *testing.T) {
	repo := newFakeRepo()

	w := postMembership(t, repo, map[string]string{
		"client_id": "0b36aa92-6c70-4f24-9856-0e2b301e263c",
		"plan_code": "unlimited",
		"starts_on": "2026-09-01",
		"ends_on":   "2026-09-30",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
