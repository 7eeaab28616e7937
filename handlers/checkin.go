package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beccrm/models"
	"beccrm/monitoring"
	"beccrm/utils"
	"beccrm/worker"
)

type CheckInHandler struct {
	repo     models.Repository
	producer utils.KafkaProducer
	enqueuer EventEnqueuer
}

func NewCheckInHandler(repo models.Repository, producer utils.KafkaProducer, enqueuer EventEnqueuer) *CheckInHandler {
	return &CheckInHandler{repo: repo, producer: producer, enqueuer: enqueuer}
}

type KioskCheckInRequest struct {
	Phone   string `json:"phone"`
	Code    string `json:"code"`
	Station string `json:"station"`
}

type kioskClientView struct {
	ClientID         string `json:"client_id"`
	Name             string `json:"name"`
	MembershipStatus string `json:"membership_status"`
	PlanCode         string `json:"plan_code,omitempty"`
	DaysRemaining    int    `json:"days_remaining"`
}

func (h *CheckInHandler) kioskView(client *models.Client) kioskClientView {
	view := kioskClientView{
		ClientID:         client.ID.String(),
		Name:             client.FullName(),
		MembershipStatus: "none",
	}
	m, err := h.repo.GetCurrentMembership(client.ID)
	if err != nil {
		return view
	}
	now := facilityNow()
	view.MembershipStatus = m.StatusOn(now)
	view.PlanCode = m.PlanCode
	view.DaysRemaining = m.DaysRemainingOn(now)
	return view
}

func (h *CheckInHandler) lookupKioskClient(phone, code string) (*models.Client, string, int) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)

	if phone == "" && code == "" {
		return nil, "phone or code is required", http.StatusBadRequest
	}
	if phone != "" && !models.ValidKioskPhone(phone) {
		return nil, "please enter a 10-digit phone number", http.StatusBadRequest
	}

	client, err := h.repo.FindClientByPhoneOrCode(models.NormalizePhone(phone), code)
	if err != nil {
		if err == models.ErrNotFound {
			return nil, "no client found, please see the front desk", http.StatusNotFound
		}
		return nil, "lookup failed, please see the front desk", http.StatusInternalServerError
	}
	return client, "", 0
}

// KioskLookup is the unauthenticated preview step on the kiosk screen: it
// resolves a phone or code to a name and membership status without
// recording a visit.
func (h *CheckInHandler) KioskLookup(c *gin.Context) {
	client, msg, status := h.lookupKioskClient(c.Query("phone"), c.Query("code"))
	if client == nil {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, h.kioskView(client))
}

// KioskCheckIn records a self-service visit. The response carries only
// what the kiosk screen shows, never the full client record.
func (h *CheckInHandler) KioskCheckIn(c *gin.Context) {
	var req KioskCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, msg, status := h.lookupKioskClient(req.Phone, req.Code)
	if client == nil {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	checkIn := &models.CheckIn{
		ClientID: client.ID,
		Method:   models.CheckInKiosk,
		Station:  req.Station,
		Notes:    "Kiosk self-service check-in",
	}
	if err := h.repo.CreateCheckIn(checkIn); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check-in failed, please see the front desk"})
		return
	}

	monitoring.CheckInsTotal.WithLabelValues(models.CheckInKiosk).Inc()
	h.publishCheckIn(client, checkIn)

	c.JSON(http.StatusCreated, gin.H{
		"check_in_id": checkIn.ID,
		"client":      h.kioskView(client),
	})
}

type StaffCheckInRequest struct {
	ClientID string `json:"client_id"`
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	Station  string `json:"station"`
	Notes    string `json:"notes"`
}

// StaffCheckIn records a front-desk visit. The client is identified by ID,
// phone or lookup code.
func (h *CheckInHandler) StaffCheckIn(c *gin.Context) {
	var req StaffCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var client *models.Client
	switch {
	case req.ClientID != "":
		clientID, err := parseUUID(req.ClientID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
			return
		}
		client, err = h.repo.GetClientByID(clientID)
		if err != nil {
			if err == models.ErrNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
				return
			}
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	case req.Phone != "" || req.Code != "":
		found, err := h.repo.FindClientByPhoneOrCode(models.NormalizePhone(req.Phone), strings.TrimSpace(req.Code))
		if err != nil {
			if err == models.ErrNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
				return
			}
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		client = found
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id, phone or code is required"})
		return
	}

	checkIn := &models.CheckIn{
		ClientID: client.ID,
		Method:   models.CheckInStaff,
		Station:  req.Station,
		Notes:    req.Notes,
	}
	if err := h.repo.CreateCheckIn(checkIn); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	monitoring.CheckInsTotal.WithLabelValues(models.CheckInStaff).Inc()
	h.publishCheckIn(client, checkIn)
	recordAudit(h.repo, c, "create", "check_in", checkIn.ID.String(), nil)

	c.JSON(http.StatusCreated, checkIn)
}

func (h *CheckInHandler) publishCheckIn(client *models.Client, checkIn *models.CheckIn) {
	go publishKafkaEvent(h.producer, worker.EventCheckinCreated, checkIn)
	publishEvent(h.enqueuer, worker.EventCheckinCreated, map[string]interface{}{
		"check_in_id": checkIn.ID.String(),
		"client_id":   client.ID.String(),
		"name":        client.FullName(),
		"method":      checkIn.Method,
		"station":     checkIn.Station,
		"happened_at": checkIn.HappenedAt,
	})
}

func (h *CheckInHandler) ListClientCheckIns(c *gin.Context) {
	clientID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	limit, offset := pagination(c, 50)
	checkIns, err := h.repo.ListClientCheckIns(clientID, limit, offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_ins": checkIns})
}

func (h *CheckInHandler) ListRecentCheckIns(c *gin.Context) {
	limit, offset := pagination(c, 50)

	if start, end := c.Query("start"), c.Query("end"); start != "" && end != "" {
		startDate, err := parseDate(start)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start, expected YYYY-MM-DD"})
			return
		}
		endDate, err := parseDate(end)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end, expected YYYY-MM-DD"})
			return
		}
		checkIns, err := h.repo.ListCheckInsByDateRange(startDate, endDate)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"check_ins": checkIns})
		return
	}

	checkIns, err := h.repo.ListRecentCheckIns(limit, offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_ins": checkIns})
}

func (h *CheckInHandler) CheckInStats(c *gin.Context) {
	stats, err := h.repo.CheckInStats(facilityNow())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
