package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"beccrm/config"
	"beccrm/models"
	"beccrm/worker"
)

type MembershipHandler struct {
	repo     models.Repository
	enqueuer EventEnqueuer
}

func NewMembershipHandler(repo models.Repository, enqueuer EventEnqueuer) *MembershipHandler {
	return &MembershipHandler{repo: repo, enqueuer: enqueuer}
}

type MembershipRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	PlanCode string `json:"plan_code" binding:"required"`
	StartsOn string `json:"starts_on" binding:"required"`
	EndsOn   string `json:"ends_on" binding:"required"`
	Notes    string `json:"notes"`
}

// membershipView decorates a membership with its derived status.
type membershipView struct {
	models.Membership
	Status        string `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
}

func viewOf(m models.Membership, now time.Time) membershipView {
	return membershipView{
		Membership:    m,
		Status:        m.StatusOn(now),
		DaysRemaining: m.DaysRemainingOn(now),
	}
}

func viewsOf(ms []models.Membership, now time.Time) []membershipView {
	views := make([]membershipView, 0, len(ms))
	for _, m := range ms {
		views = append(views, viewOf(m, now))
	}
	return views
}

func facilityNow() time.Time {
	return time.Now().In(config.AppConfig.Location())
}

func (h *MembershipHandler) CreateMembership(c *gin.Context) {
	var req MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID, err := parseUUID(req.ClientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	if _, ok := models.MembershipPlans[req.PlanCode]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan code"})
		return
	}

	startsOn, err := parseDate(req.StartsOn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid starts_on, expected YYYY-MM-DD"})
		return
	}
	endsOn, err := parseDate(req.EndsOn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ends_on, expected YYYY-MM-DD"})
		return
	}
	if !endsOn.After(startsOn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_on must be after starts_on"})
		return
	}

	client, err := h.repo.GetClientByID(clientID)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	overlap, err := h.repo.FindOverlappingMembership(clientID, startsOn, endsOn, uuid.Nil)
	if err != nil && err != models.ErrNotFound {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if overlap != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                  "client already has a membership overlapping this date range",
			"overlapping_membership": overlap.ID,
		})
		return
	}

	m := &models.Membership{
		ClientID: clientID,
		PlanCode: req.PlanCode,
		StartsOn: startsOn,
		EndsOn:   endsOn,
		Notes:    req.Notes,
	}
	if err := h.repo.CreateMembership(m); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := facilityNow()
	if m.StatusOn(now) == models.StatusActive {
		publishEvent(h.enqueuer, worker.EventStatusChanged, map[string]interface{}{
			"client_id":  client.ID.String(),
			"new_status": models.StatusActive,
		})
	}
	recordAudit(h.repo, c, "create", "membership", m.ID.String(), req)

	c.JSON(http.StatusCreated, viewOf(*m, now))
}

func (h *MembershipHandler) GetMembership(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid membership ID format"})
		return
	}

	m, err := h.repo.GetMembershipByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, viewOf(*m, facilityNow()))
}

type MembershipUpdateRequest struct {
	PlanCode string  `json:"plan_code"`
	StartsOn string  `json:"starts_on"`
	EndsOn   string  `json:"ends_on"`
	Notes    *string `json:"notes"`
}

func (h *MembershipHandler) UpdateMembership(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid membership ID format"})
		return
	}

	var req MembershipUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.repo.GetMembershipByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := facilityNow()
	oldStatus := m.StatusOn(now)

	if req.PlanCode != "" {
		if _, ok := models.MembershipPlans[req.PlanCode]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan code"})
			return
		}
		m.PlanCode = req.PlanCode
	}
	if req.StartsOn != "" {
		startsOn, err := parseDate(req.StartsOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid starts_on, expected YYYY-MM-DD"})
			return
		}
		m.StartsOn = startsOn
	}
	if req.EndsOn != "" {
		endsOn, err := parseDate(req.EndsOn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ends_on, expected YYYY-MM-DD"})
			return
		}
		m.EndsOn = endsOn
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}

	if !m.EndsOn.After(m.StartsOn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_on must be after starts_on"})
		return
	}

	overlap, err := h.repo.FindOverlappingMembership(m.ClientID, m.StartsOn, m.EndsOn, m.ID)
	if err != nil && err != models.ErrNotFound {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if overlap != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                  "client already has a membership overlapping this date range",
			"overlapping_membership": overlap.ID,
		})
		return
	}

	if err := h.repo.UpdateMembership(m); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if newStatus := m.StatusOn(now); newStatus != oldStatus {
		publishEvent(h.enqueuer, worker.EventStatusChanged, map[string]interface{}{
			"client_id":  m.ClientID.String(),
			"new_status": newStatus,
		})
	}
	recordAudit(h.repo, c, "update", "membership", m.ID.String(), req)

	c.JSON(http.StatusOK, viewOf(*m, now))
}

func (h *MembershipHandler) DeleteMembership(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid membership ID format"})
		return
	}

	m, err := h.repo.GetMembershipByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "membership not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.DeleteMembership(id); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if m.StatusOn(facilityNow()) == models.StatusActive {
		publishEvent(h.enqueuer, worker.EventStatusChanged, map[string]interface{}{
			"client_id":  m.ClientID.String(),
			"new_status": models.StatusExpired,
		})
	}
	recordAudit(h.repo, c, "delete", "membership", id.String(), nil)

	c.Status(http.StatusNoContent)
}

// ListClientMemberships returns a client's full membership history, newest
// first, with derived statuses.
func (h *MembershipHandler) ListClientMemberships(c *gin.Context) {
	clientID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	ms, err := h.repo.ListClientMemberships(clientID)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberships": viewsOf(ms, facilityNow())})
}

// GetCurrentMembership returns the membership covering today, or the most
// recent one when none is active.
func (h *MembershipHandler) GetCurrentMembership(c *gin.Context) {
	clientID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	m, err := h.repo.GetCurrentMembership(clientID)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client has no memberships"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, viewOf(*m, facilityNow()))
}

func (h *MembershipHandler) ListMembershipsByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", models.StatusActive)
	switch status {
	case models.StatusPending, models.StatusActive, models.StatusExpired:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, active or expired"})
		return
	}

	limit, offset := pagination(c, 50)
	now := facilityNow()

	ms, total, err := h.repo.ListMembershipsByStatus(status, now, limit, offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberships": viewsOf(ms, now), "total": total})
}

// ListExpiringMemberships lists active memberships ending within ?days=N
// (default 30).
func (h *MembershipHandler) ListExpiringMemberships(c *gin.Context) {
	days := 30
	if v, err := strconv.Atoi(c.DefaultQuery("days", "30")); err == nil && v > 0 && v <= 365 {
		days = v
	}

	now := facilityNow()
	ms, err := h.repo.ListExpiringMemberships(now, days, nil)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"memberships": viewsOf(ms, now), "days": days})
}

func (h *MembershipHandler) MembershipStats(c *gin.Context) {
	stats, err := h.repo.MembershipStats(facilityNow())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *MembershipHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": models.MembershipPlans})
}
