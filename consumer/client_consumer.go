// Package consumer tails the CRM event topic and keeps the Elasticsearch
// index and Redis cache in sync with Postgres.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"beccrm/config"
	"beccrm/models"
	"beccrm/utils"
)

const cacheTTL = 24 * time.Hour

// ClientEvent is the message format on the CRM event topic.
type ClientEvent struct {
	Event string        `json:"event"`
	Data  models.Client `json:"data"`
}

type ClientConsumer struct {
	repo     models.Repository
	cache    utils.RedisClient
	es       utils.ElasticsearchClient
	reader   *kafka.Reader
	log      *zap.Logger
	shutdown chan struct{}
	stopped  chan struct{}
}

func NewClientConsumer(repo models.Repository, cache utils.RedisClient, es utils.ElasticsearchClient) *ClientConsumer {
	return &ClientConsumer{
		repo:  repo,
		cache: cache,
		es:    es,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{config.AppConfig.KafkaBroker},
			Topic:   utils.ClientEventsTopic,
			GroupID: "bec-crm-group",
			MaxWait: 10 * time.Second,
		}),
		log:      utils.GetLogger(),
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (c *ClientConsumer) Start(ctx context.Context) {
	c.log.Info("starting Kafka consumer")

	go func() {
		defer close(c.stopped)
		for {
			select {
			case <-c.shutdown:
				return
			case <-ctx.Done():
				return
			default:
				c.processMessages(ctx)
			}
		}
	}()
}

// Stopped is closed once the consume loop has exited.
func (c *ClientConsumer) Stopped() <-chan struct{} {
	return c.stopped
}

func (c *ClientConsumer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing Kafka reader", zap.Error(err))
	}
}

func (c *ClientConsumer) processMessages(ctx context.Context) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if err == context.Canceled {
			return
		}
		c.log.Warn("kafka read error, will retry", zap.Error(err))
		time.Sleep(5 * time.Second)
		return
	}

	var event ClientEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.Error("failed to unmarshal Kafka message", zap.Error(err))
		return
	}

	switch event.Event {
	case "client.created", "client.updated":
		c.handleClientUpserted(ctx, event.Data)
	case "client.deleted":
		c.handleClientDeleted(ctx, event.Data.ID.String())
	case "checkin.created":
		// Visit records are not indexed; Postgres is authoritative.
	default:
		c.log.Warn("unknown event type", zap.String("event", event.Event))
	}
}

// handleClientUpserted refreshes the cache entry and search document for a
// client after a create or update.
func (c *ClientConsumer) handleClientUpserted(ctx context.Context, client models.Client) {
	clientJSON, err := json.Marshal(client)
	if err != nil {
		c.log.Error("failed to marshal client", zap.Error(err))
		return
	}

	cacheKey := "client:" + client.ID.String()
	if err := c.cache.SetToCache(ctx, cacheKey, string(clientJSON), cacheTTL); err != nil {
		c.log.Error("failed to cache client", zap.Error(err))
	}

	if c.es != nil {
		if err := c.es.IndexClient(ctx, utils.ClientIndex, client.ID.String(), client); err != nil {
			c.log.Error("failed to index client in Elasticsearch", zap.Error(err))
		}
	}

	c.log.Info("indexed client", zap.String("client_id", client.ID.String()))
}

func (c *ClientConsumer) handleClientDeleted(ctx context.Context, clientID string) {
	if err := c.cache.DeleteFromCache(ctx, "client:"+clientID); err != nil {
		c.log.Error("failed to evict client from cache", zap.Error(err))
	}

	if c.es != nil {
		if err := c.es.DeleteClient(ctx, utils.ClientIndex, clientID); err != nil {
			c.log.Error("failed to delete client from Elasticsearch", zap.Error(err))
		}
	}

	c.log.Info("removed client from index", zap.String("client_id", clientID))
}
