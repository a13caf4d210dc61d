package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types accepted on the refresh subscription.
const (
	JobSnapshotRefresh = "snapshot_refresh"
	JobStationRefresh  = "station_refresh"
	JobHealthCheck     = "health_check"
)

// LatestTimeProber verifies upstream connectivity cheaply.
type LatestTimeProber interface {
	FetchLatestTime(ctx context.Context) (time.Time, error)
}

// PubSubHandler handles refresh requests delivered over Pub/Sub.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *messageProcessor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Prober           LatestTimeProber
	Logger           zerolog.Logger
}

// RefreshMessage represents a refresh job message.
type RefreshMessage struct {
	JobType string `json:"job_type"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Refreshes are coalesced by the job, a few outstanding messages suffice.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 5 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor: &messageProcessor{
			job:    cfg.RefreshJob,
			prober: cfg.Prober,
			logger: cfg.Logger,
		},
		logger: cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages and blocks until ctx ends.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if h.processor.process(ctx, msg.Data, logger) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// messageProcessor runs the job a message asks for, independent of the
// Pub/Sub transport.
type messageProcessor struct {
	job    *RefreshJob
	prober LatestTimeProber
	logger zerolog.Logger
}

// process reports whether the message should be acknowledged. Malformed and
// failed messages are redelivered, unknown job types are dropped.
func (p *messageProcessor) process(ctx context.Context, data []byte, logger zerolog.Logger) bool {
	startTime := time.Now()
	logger.Debug().Msg("received pubsub message")

	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return false
	}

	var err error
	switch msg.JobType {
	case JobSnapshotRefresh:
		_, err = p.job.RefreshSnapshot(ctx)
	case JobStationRefresh:
		_, err = p.job.RefreshStations(ctx)
	case JobHealthCheck:
		err = p.healthCheck(ctx)
	default:
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (p *messageProcessor) healthCheck(ctx context.Context) error {
	if p.prober == nil {
		return nil
	}
	latest, err := p.prober.FetchLatestTime(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	p.logger.Debug().Time("latest", latest).Msg("health check passed")
	return nil
}
