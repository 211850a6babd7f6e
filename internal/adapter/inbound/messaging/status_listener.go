package messaging

import (
	outboundmsg "codevectorizer/internal/adapter/outbound/messaging"
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/application/service"
	"codevectorizer/internal/domain/valueobject"
	"codevectorizer/internal/port/outbound"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// StatusListenerConfig holds settings for the job status listener.
type StatusListenerConfig struct {
	URL     string
	Subject string
}

// Validate checks required listener settings.
func (c *StatusListenerConfig) Validate() error {
	if c.URL == "" {
		return errors.New("NATS URL cannot be empty")
	}
	return nil
}

// StatusListener subscribes to worker-broadcast job state and mirrors it
// into a local job registry, so a process that never ran a job can still
// answer status queries for it. Unlike the job consumer there is no queue
// group: every listening process receives every update.
type StatusListener struct {
	config  StatusListenerConfig
	tracker *service.JobTracker

	mu           sync.Mutex
	conn         *nats.Conn
	subscription *nats.Subscription
	running      bool
}

// NewStatusListener creates a listener that applies job state updates to
// the given registry.
func NewStatusListener(config StatusListenerConfig, tracker *service.JobTracker) (*StatusListener, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid status listener configuration: %w", err)
	}
	if tracker == nil {
		return nil, errors.New("job tracker cannot be nil")
	}
	if config.Subject == "" {
		config.Subject = outboundmsg.SubjectJobStatus
	}

	return &StatusListener{
		config:  config,
		tracker: tracker,
	}, nil
}

// Start connects to NATS and begins mirroring job state updates.
func (l *StatusListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("status listener already running for subject %s", l.config.Subject)
	}

	conn, err := nats.Connect(l.config.URL,
		nats.Timeout(connectTimeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slogger.InfoNoCtx("NATS status listener reconnected", nil)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	sub, err := conn.Subscribe(l.config.Subject, l.handleMessage)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", l.config.Subject, err)
	}

	l.conn = conn
	l.subscription = sub
	l.running = true

	slogger.Info(ctx, "Job status listener started", slogger.Fields{
		"subject": l.config.Subject,
	})
	return nil
}

// Stop drains the subscription and closes the connection. Stopping a
// listener that is not running is a no-op.
func (l *StatusListener) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}

	if l.subscription != nil {
		if err := l.subscription.Drain(); err != nil {
			slogger.Warn(ctx, "Failed to drain status subscription", slogger.Fields{
				"error": err.Error(),
			})
		}
		l.subscription = nil
	}
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.running = false

	slogger.Info(ctx, "Job status listener stopped", nil)
	return nil
}

func (l *StatusListener) handleMessage(msg *nats.Msg) {
	if err := applyStatusUpdate(l.tracker, msg.Data); err != nil {
		slogger.ErrorNoCtx("Discarding malformed job status message", slogger.Fields{
			"error": err.Error(),
		})
	}
}

// applyStatusUpdate decodes one broadcast snapshot and upserts it into the
// registry.
func applyStatusUpdate(tracker *service.JobTracker, data []byte) error {
	var message outbound.JobStatusMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	if message.JobID == uuid.Nil {
		return errors.New("job ID cannot be nil")
	}
	status, err := valueobject.NewJobStatus(message.Status)
	if err != nil {
		return err
	}

	return tracker.Apply(service.JobSnapshot{
		JobID:     message.JobID,
		Tenant:    message.Tenant,
		RepoName:  message.RepoName,
		RepoURL:   message.RepoURL,
		Status:    status,
		Progress:  message.Progress,
		Error:     message.Error,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	})
}
