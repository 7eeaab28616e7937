package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"beccrm/config"
	"beccrm/models"
	"beccrm/utils"
)

// GgleapClient talks to the ggLeap esports-center API.
type GgleapClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

func NewGgleapClient() *GgleapClient {
	return &GgleapClient{
		baseURL: config.AppConfig.GgleapBaseURL,
		apiKey:  config.AppConfig.GgleapAPIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     utils.GetLogger(),
	}
}

func (g *GgleapClient) enabled() bool {
	return config.AppConfig.FeatureGgleapSync && g.apiKey != ""
}

func (g *GgleapClient) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return g.client.Do(req)
}

// GetUser fetches a ggLeap user profile.
func (g *GgleapClient) GetUser(ctx context.Context, userID string) (map[string]interface{}, error) {
	resp, err := g.do(ctx, http.MethodGet, "/users/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("ggleap get user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ggleap get user: HTTP %d", resp.StatusCode)
	}

	var user map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("ggleap get user: %w", err)
	}
	return user, nil
}

// AddUserToGroup adds a ggLeap user to a group.
func (g *GgleapClient) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	resp, err := g.do(ctx, http.MethodPost, "/groups/"+groupID+"/members", map[string]string{"user_id": userID})
	if err != nil {
		return fmt.Errorf("ggleap add to group: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("ggleap add to group: HTTP %d", resp.StatusCode)
	}
	return nil
}

// RemoveUserFromGroup removes a ggLeap user from a group.
func (g *GgleapClient) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	resp, err := g.do(ctx, http.MethodDelete, "/groups/"+groupID+"/members/"+userID, nil)
	if err != nil {
		return fmt.Errorf("ggleap remove from group: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("ggleap remove from group: HTTP %d", resp.StatusCode)
	}
	return nil
}

// GgleapSyncer moves linked ggLeap users between the mapped active and
// expired groups as membership status changes.
type GgleapSyncer struct {
	repo   models.Repository
	client *GgleapClient
	log    *zap.Logger
}

func NewGgleapSyncer(repo models.Repository) *GgleapSyncer {
	return &GgleapSyncer{
		repo:   repo,
		client: NewGgleapClient(),
		log:    utils.GetLogger(),
	}
}

// VerifyUser checks that a ggLeap user exists before linking it. A no-op
// when the integration is disabled.
func (s *GgleapSyncer) VerifyUser(ctx context.Context, ggleapUserID string) error {
	if !s.client.enabled() {
		return nil
	}
	if _, err := s.client.GetUser(ctx, ggleapUserID); err != nil {
		return err
	}
	return nil
}

// UpdateClientGroup places the linked ggLeap user in the group matching
// the membership status. Unlinked clients are skipped.
func (s *GgleapSyncer) UpdateClientGroup(ctx context.Context, clientID uuid.UUID, status string) error {
	if !s.client.enabled() {
		return nil
	}

	link, err := s.repo.GetGgleapLink(clientID)
	if err != nil {
		if err == models.ErrNotFound {
			return nil
		}
		return err
	}

	activeGroup, err := s.repo.GetGgleapGroup(models.GgleapGroupActive)
	if err != nil {
		return fmt.Errorf("ggleap active group mapping not configured: %w", err)
	}
	expiredGroup, err := s.repo.GetGgleapGroup(models.GgleapGroupExpired)
	if err != nil {
		return fmt.Errorf("ggleap expired group mapping not configured: %w", err)
	}

	target, other := expiredGroup, activeGroup
	if status == models.StatusActive {
		target, other = activeGroup, expiredGroup
	}

	if err := s.client.AddUserToGroup(ctx, link.GgleapUserID, target.GgleapGroupID); err != nil {
		return err
	}
	if err := s.client.RemoveUserFromGroup(ctx, link.GgleapUserID, other.GgleapGroupID); err != nil {
		return err
	}

	s.log.Info("updated ggleap group",
		zap.String("client_id", clientID.String()),
		zap.String("status", status))
	return nil
}

// SyncAll reconciles every linked client against its current membership
// status. Runs nightly.
func (s *GgleapSyncer) SyncAll(ctx context.Context, now time.Time) error {
	if !s.client.enabled() {
		s.log.Info("ggleap sync feature disabled")
		return nil
	}

	links, err := s.repo.ListGgleapLinks()
	if err != nil {
		return fmt.Errorf("failed to list ggleap links: %w", err)
	}

	for _, link := range links {
		status := models.StatusExpired
		if m, err := s.repo.GetCurrentMembership(link.ClientID); err == nil {
			status = m.StatusOn(now)
		}

		if err := s.UpdateClientGroup(ctx, link.ClientID, status); err != nil {
			s.log.Error("ggleap sync failed for client",
				zap.String("client_id", link.ClientID.String()),
				zap.Error(err))
		}
	}

	s.log.Info("completed ggleap group sync", zap.Int("clients", len(links)))
	return nil
}
