package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"beccrm/middleware"
	"beccrm/models"
	"beccrm/utils"
	"beccrm/worker"
)

type ClientHandler struct {
	repo     models.Repository
	redis    utils.RedisClient
	es       utils.ElasticsearchClient
	producer utils.KafkaProducer
	enqueuer EventEnqueuer
}

func NewClientHandler(repo models.Repository, redis utils.RedisClient, es utils.ElasticsearchClient, producer utils.KafkaProducer, enqueuer EventEnqueuer) *ClientHandler {
	return &ClientHandler{repo: repo, redis: redis, es: es, producer: producer, enqueuer: enqueuer}
}

type ClientRequest struct {
	FirstName          string            `json:"first_name" binding:"required"`
	LastName           string            `json:"last_name" binding:"required"`
	DateOfBirth        string            `json:"date_of_birth"`
	Email              string            `json:"email" binding:"omitempty,email"`
	Phone              string            `json:"phone"`
	ParentGuardianName string            `json:"parent_guardian_name"`
	POSNumber          string            `json:"pos_number"`
	ServiceCoordinator string            `json:"service_coordinator"`
	POSStartDate       string            `json:"pos_start_date"`
	POSEndDate         string            `json:"pos_end_date"`
	Notes              string            `json:"notes"`
	Language           string            `json:"language"`
	ExternalIDs        map[string]string `json:"external_ids"`
	Tags               []string          `json:"tags"`
}

func (r *ClientRequest) apply(client *models.Client) error {
	client.FirstName = strings.TrimSpace(r.FirstName)
	client.LastName = strings.TrimSpace(r.LastName)
	client.Email = strings.TrimSpace(r.Email)
	client.Phone = strings.TrimSpace(r.Phone)
	client.ParentGuardianName = r.ParentGuardianName
	client.POSNumber = r.POSNumber
	client.ServiceCoordinator = r.ServiceCoordinator
	client.Notes = r.Notes
	client.Language = r.Language

	dob, err := parseOptionalDate(r.DateOfBirth)
	if err != nil {
		return err
	}
	client.DateOfBirth = dob

	posStart, err := parseOptionalDate(r.POSStartDate)
	if err != nil {
		return err
	}
	client.POSStartDate = posStart

	posEnd, err := parseOptionalDate(r.POSEndDate)
	if err != nil {
		return err
	}
	client.POSEndDate = posEnd

	if r.ExternalIDs != nil {
		ids := datatypes.JSONMap{}
		for k, v := range r.ExternalIDs {
			ids[k] = v
		}
		client.ExternalIDs = ids
	}
	return nil
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := &models.Client{}
	if err := req.apply(client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, expected YYYY-MM-DD"})
		return
	}

	if client.Email != "" || client.Phone != "" {
		dup, err := h.repo.FindDuplicateClient(client.Email, client.Phone, uuid.Nil)
		if err != nil && err != models.ErrNotFound {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if dup != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":              "a client with this email or phone already exists",
				"existing_client_id": dup.ID,
			})
			return
		}
	}

	if err := h.repo.CreateClient(client); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(req.Tags) > 0 {
		updated, err := h.repo.AddTagsToClient(client.ID, req.Tags)
		if err != nil {
			utils.GetLogger().Error("failed to tag new client",
				zap.String("client_id", client.ID.String()), zap.Error(err))
		} else {
			client = updated
		}
	}

	go publishKafkaEvent(h.producer, worker.EventClientCreated, client)
	publishEvent(h.enqueuer, worker.EventClientCreated, map[string]interface{}{
		"client_id": client.ID.String(),
		"name":      client.FullName(),
		"email":     client.Email,
		"phone":     client.Phone,
	})
	recordAudit(h.repo, c, "create", "client", client.ID.String(), nil)

	c.JSON(http.StatusCreated, client)
}

// GetClient serves a client record, preferring the Redis cache warmed by
// the event consumer.
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	if h.redis != nil {
		if cached, err := h.redis.GetFromCache(c.Request.Context(), clientCacheKey(id)); err == nil && cached != "" {
			var client models.Client
			if err := json.Unmarshal([]byte(cached), &client); err == nil {
				c.JSON(http.StatusOK, client)
				return
			}
		}
	}

	client, err := h.repo.GetClientByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, client)
}

// SearchClients runs full-text search over Elasticsearch, falling back to
// Postgres when the search cluster is unavailable.
func (h *ClientHandler) SearchClients(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	var tags []string
	if raw := c.Query("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	limit, offset := pagination(c, 25)

	if h.es != nil && query != "" && len(tags) == 0 {
		esQuery := map[string]interface{}{
			"from": offset,
			"size": limit,
			"query": map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  query,
					"fields": []string{"first_name^2", "last_name^2", "email", "phone", "parent_guardian_name", "notes"},
					"type":   "best_fields",
				},
			},
		}
		hits, err := h.es.SearchClients(c.Request.Context(), utils.ClientIndex, esQuery)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"clients": hits, "total": len(hits), "source": "elasticsearch"})
			return
		}
		utils.GetLogger().Warn("Elasticsearch search failed, falling back to Postgres", zap.Error(err))
	}

	clients, total, err := h.repo.SearchClients(query, tags, limit, offset)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients, "total": total, "source": "postgres"})
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.repo.GetClientByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := req.apply(client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, expected YYYY-MM-DD"})
		return
	}

	if client.Email != "" || client.Phone != "" {
		dup, err := h.repo.FindDuplicateClient(client.Email, client.Phone, client.ID)
		if err != nil && err != models.ErrNotFound {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if dup != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":              "another client already uses this email or phone",
				"existing_client_id": dup.ID,
			})
			return
		}
	}

	if err := h.repo.UpdateClient(client); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.evictCache(c, client.ID)
	go publishKafkaEvent(h.producer, worker.EventClientUpdated, client)
	recordAudit(h.repo, c, "update", "client", client.ID.String(), nil)

	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	client, err := h.repo.GetClientByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.DeleteClient(id); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.evictCache(c, id)
	go publishKafkaEvent(h.producer, worker.EventClientDeleted, client)
	recordAudit(h.repo, c, "delete", "client", id.String(), nil)

	c.Status(http.StatusNoContent)
}

func (h *ClientHandler) ListTags(c *gin.Context) {
	tags, err := h.repo.ListTags()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

type TagRequest struct {
	Tags []string `json:"tags" binding:"required,min=1"`
}

func (h *ClientHandler) AddClientTags(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client, err := h.repo.AddTagsToClient(id, req.Tags)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.evictCache(c, id)
	go publishKafkaEvent(h.producer, worker.EventClientUpdated, client)
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) RemoveClientTag(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	client, err := h.repo.RemoveTagFromClient(id, c.Param("tag"))
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "client or tag not found"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.evictCache(c, id)
	go publishKafkaEvent(h.producer, worker.EventClientUpdated, client)
	c.JSON(http.StatusOK, client)
}

type ContactMethodRequest struct {
	Type  string `json:"type" binding:"required,oneof=sms email discord"`
	Value string `json:"value" binding:"required"`
}

func (h *ClientHandler) AddContactMethod(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var req ContactMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.repo.GetClientByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	method := &models.ContactMethod{
		ClientID: id,
		Type:     req.Type,
		Value:    req.Value,
	}
	if err := h.repo.AddContactMethod(method); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.evictCache(c, id)
	c.JSON(http.StatusCreated, method)
}

type ConsentRequest struct {
	Kind    string `json:"kind" binding:"required,oneof=sms email photo tos waiver"`
	Granted *bool  `json:"granted" binding:"required"`
	Source  string `json:"source"`
}

func (h *ClientHandler) AddConsents(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var reqs []ConsentRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one consent is required"})
		return
	}

	if _, err := h.repo.GetClientByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	now := time.Now()
	consents := make([]*models.Consent, 0, len(reqs))
	for _, r := range reqs {
		consent := &models.Consent{
			ClientID: id,
			Kind:     r.Kind,
			Granted:  *r.Granted,
			Source:   r.Source,
		}
		if consent.Granted {
			consent.GrantedAt = &now
		}
		consents = append(consents, consent)
	}

	if err := h.repo.AddConsents(consents); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.evictCache(c, id)
	c.JSON(http.StatusCreated, gin.H{"consents": consents})
}

type ClientNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

func (h *ClientHandler) AddClientNote(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	var req ClientNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.repo.GetClientByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	note := &models.ClientNote{
		ClientID: id,
		UserID:   middleware.CurrentUserID(c),
		Note:     req.Note,
	}

	if err := h.repo.AddClientNote(note); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recordAudit(h.repo, c, "create", "client_note", note.ID.String(), nil)
	c.JSON(http.StatusCreated, note)
}

func (h *ClientHandler) ListClientNotes(c *gin.Context) {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client ID format"})
		return
	}

	notes, err := h.repo.ListClientNotes(id)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (h *ClientHandler) evictCache(c *gin.Context, id uuid.UUID) {
	if h.redis == nil {
		return
	}
	if err := h.redis.DeleteFromCache(c.Request.Context(), clientCacheKey(id)); err != nil {
		utils.GetLogger().Warn("failed to evict client cache",
			zap.String("client_id", id.String()), zap.Error(err))
	}
}

func clientCacheKey(id uuid.UUID) string {
	return "client:" + id.String()
}
