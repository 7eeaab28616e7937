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
	"gorm.io/datatypes"

	"beccrm/models"
)

func kioskRouter(repo *fakeRepo) *gin.Engine {
	h := NewCheckInHandler(repo, nil, nil)
	r := gin.New()
	r.GET("/kiosk/lookup", h.KioskLookup)
	r.POST("/kiosk/check-in", h.KioskCheckIn)
	return r
}

func activeMembershipFor(repo *fakeRepo, client *models.Client) {
	now := time.Now()
	repo.addMembership(&models.Membership{
		ClientID: client.ID,
		PlanCode: "unlimited",
		StartsOn: now.AddDate(0, 0, -10),
		EndsOn:   now.AddDate(0, 0, 20),
	})
}

func TestKioskCheckInByPhone(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{
		FirstName: "Jordan",
		LastName:  "Reyes",
		Phone:     "(661) 555-0142",
	})
	activeMembershipFor(repo, client)

	body, _ := json.Marshal(map[string]string{
		"phone":   "661-555-0142",
		"station": "PC-07",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/kiosk/check-in", bytes.NewReader(body))
	kioskRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		CheckInID string          `json:"check_in_id"`
		Client    kioskClientView `json:"client"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Jordan Reyes", resp.Client.Name)
	assert.Equal(t, models.StatusActive, resp.Client.MembershipStatus)
	assert.Equal(t, "unlimited", resp.Client.PlanCode)

	require.Len(t, repo.createdCheckIns, 1)
	checkIn := repo.createdCheckIns[0]
	assert.Equal(t, client.ID, checkIn.ClientID)
	assert.Equal(t, models.CheckInKiosk, checkIn.Method)
	assert.Equal(t, "PC-07", checkIn.Station)
}

func TestKioskCheckInByCode(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{
		FirstName:   "Sam",
		LastName:    "Okafor",
		ExternalIDs: datatypes.JSONMap{"code": "KRC-0042"},
	})
	activeMembershipFor(repo, client)

	body, _ := json.Marshal(map[string]string{"code": "KRC-0042"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/kiosk/check-in", bytes.NewReader(body))
	kioskRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.createdCheckIns, 1)
}

func TestKioskCheckInRejectsShortPhone(t *testing.T) {
	repo := newFakeRepo()

	body, _ := json.Marshal(map[string]string{"phone": "555-0142"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/kiosk/check-in", bytes.NewReader(body))
	kioskRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.createdCheckIns)
}

func TestKioskCheckInRequiresPhoneOrCode(t *testing.T) {
	repo := newFakeRepo()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/kiosk/check-in", bytes.NewReader([]byte(`{}`)))
	kioskRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKioskCheckInUnknownClient(t *testing.T) {
	repo := newFakeRepo()

	body, _ := json.Marshal(map[string]string{"phone": "6615550199"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/kiosk/check-in", bytes.NewReader(body))
	kioskRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, repo.createdCheckIns)
}

func TestKioskLookupShowsStatusWithoutCheckIn(t *testing.T) {
	repo := newFakeRepo()
	client := repo.addClient(&models.Client{
		FirstName: "Lena",
		LastName:  "Park",
		Phone:     "6615550177",
	})
	// Expired membership.
	now := time.Now()
	repo.addMembership(&models.Membership{
		ClientID: client.ID,
		PlanCode: "10_hours",
		StartsOn: now.AddDate(0, -2, 0),
		EndsOn:   now.AddDate(0, -1, 0),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/kiosk/lookup?phone=6615550177", nil)
	kioskRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var view kioskClientView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "Lena Park", view.Name)
	assert.Equal(t, models.StatusExpired, view.MembershipStatus)
	assert.Zero(t, view.DaysRemaining)
	assert.Empty(t, repo.createdCheckIns)
}

func TestKioskLookupNoMembership(t *testing.T) {
	repo := newFakeRepo()
	repo.addClient(&models.Client{
		FirstName: "Ada",
		LastName:  "Nguyen",
		Phone:     "6615550111",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/kiosk/lookup?phone=%28661%29%20555-0111", nil)
	kioskRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var view kioskClientView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "none", view.MembershipStatus)
}
