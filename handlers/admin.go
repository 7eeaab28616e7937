package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beccrm/backup"
	"beccrm/models"
	"beccrm/utils"
	"beccrm/worker"
)

// AdminHandler groups the admin-only operational endpoints: the webhook
// queue, the audit log, backups, ggLeap links and the dashboard.
type AdminHandler struct {
	repo    models.Repository
	backups *backup.Manager
	syncer  *worker.GgleapSyncer
}

func NewAdminHandler(repo models.Repository, backups *backup.Manager, syncer *worker.GgleapSyncer) *AdminHandler {
	return &AdminHandler{repo: repo, backups: backups, syncer: syncer}
}

func (h *AdminHandler) ListWebhooks(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.WebhookQueued, models.WebhookSent, models.WebhookFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be queued, sent or failed"})
		return
	}

	limit, offset := pagination(c, 50)
	webhooks, total, err := h.repo.ListWebhooks(status, limit, offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": webhooks, "total": total})
}

// RequeueWebhook puts a failed webhook back on the queue with a fresh
// attempt budget.
func (h *AdminHandler) RequeueWebhook(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook ID format"})
		return
	}

	w, err := h.repo.GetWebhookByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "webhook not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if w.Status == models.WebhookSent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook was already delivered"})
		return
	}

	w.Status = models.WebhookQueued
	w.AttemptCount = 0
	w.LastError = ""
	if err := h.repo.UpdateWebhook(w); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recordAudit(h.repo, c, "requeue", "webhook", w.ID.String(), nil)
	c.JSON(http.StatusOK, w)
}

func (h *AdminHandler) ListAuditLog(c *gin.Context) {
	limit, offset := pagination(c, 50)
	entries, total, err := h.repo.ListAuditLog(c.Query("entity"), c.Query("action"), limit, offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": total})
}

func (h *AdminHandler) BackupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.backups.Status())
}

// TriggerBackup starts a dump in the background so the request returns
// immediately. Concurrent runs are rejected by the manager.
func (h *AdminHandler) TriggerBackup(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := h.backups.Run(ctx); err != nil {
			utils.GetLogger().Error("manual backup failed", zap.Error(err))
		}
	}()

	recordAudit(h.repo, c, "trigger", "backup", "", nil)
	c.JSON(http.StatusAccepted, gin.H{"status": "backup started"})
}

type GgleapLinkRequest struct {
	GgleapUserID string `json:"ggleap_user_id" binding:"required"`
}

func (h *AdminHandler) LinkGgleapUser(c *gin.Context) {
	clientID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var req GgleapLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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

	if existing, err := h.repo.GetGgleapLink(clientID); err == nil && existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "client is already linked to a ggLeap user"})
		return
	}

	if err := h.syncer.VerifyUser(c.Request.Context(), req.GgleapUserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ggLeap user not found: " + err.Error()})
		return
	}

	link := &models.GgleapLink{
		ClientID:     client.ID,
		GgleapUserID: req.GgleapUserID,
	}
	if err := h.repo.CreateGgleapLink(link); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Put the freshly linked user into the right group right away.
	status := models.StatusExpired
	if m, err := h.repo.GetCurrentMembership(clientID); err == nil {
		status = m.StatusOn(facilityNow())
	}
	if err := h.syncer.UpdateClientGroup(c.Request.Context(), clientID, status); err != nil {
		utils.GetLogger().Warn("initial ggLeap group sync failed",
			zap.String("client_id", clientID.String()), zap.Error(err))
	}

	recordAudit(h.repo, c, "link", "ggleap_link", link.ID.String(), nil)
	c.JSON(http.StatusCreated, link)
}

func (h *AdminHandler) UnlinkGgleapUser(c *gin.Context) {
	clientID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	if err := h.repo.DeleteGgleapLink(clientID); err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client has no ggLeap link"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recordAudit(h.repo, c, "unlink", "ggleap_link", clientID.String(), nil)
	c.Status(http.StatusNoContent)
}

type GgleapGroupRequest struct {
	MapKey        string `json:"map_key" binding:"required,oneof=active expired"`
	GgleapGroupID string `json:"ggleap_group_id" binding:"required"`
	GroupName     string `json:"group_name"`
}

func (h *AdminHandler) UpsertGgleapGroup(c *gin.Context) {
	var req GgleapGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := &models.GgleapGroup{
		MapKey:        req.MapKey,
		GgleapGroupID: req.GgleapGroupID,
		GroupName:     req.GroupName,
	}
	if err := h.repo.UpsertGgleapGroup(group); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recordAudit(h.repo, c, "upsert", "ggleap_group", req.MapKey, nil)
	c.JSON(http.StatusOK, group)
}

// Dashboard rolls the membership and check-in summaries into one payload
// for the admin home screen.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	now := facilityNow()

	memberships, err := h.repo.MembershipStats(now)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	checkIns, err := h.repo.CheckInStats(now)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"memberships":  memberships,
		"check_ins":    checkIns,
		"generated_at": now,
	})
}
