package messaging

import (
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/port/outbound"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding vectorization jobs.
	StreamName = "VECTORIZE"

	// SubjectVectorizeJob is the subject jobs are published on.
	SubjectVectorizeJob = "vectorize.job"

	// SubjectJobStatus is the core NATS subject job state changes are
	// broadcast on. It lives outside the vectorize.> stream subjects so
	// status fan-out never enters the work queue.
	SubjectJobStatus = "jobs.status"

	connectTimeout = 5 * time.Second
	streamMaxAge   = 24 * time.Hour
)

// Config holds NATS connection settings for the publisher.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Validate checks the connection settings.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(c.URL, "nats://") {
		return errors.New("invalid NATS URL scheme")
	}
	if c.MaxReconnects < 0 {
		return errors.New("max reconnects cannot be negative")
	}
	if c.ReconnectWait < 0 {
		return errors.New("reconnect wait cannot be negative")
	}
	return nil
}

// Publisher publishes vectorization job messages to NATS JetStream.
type Publisher struct {
	config Config

	mu   sync.RWMutex
	conn *nats.Conn
	js   nats.JetStreamContext

	publishedCount int64
	failedCount    int64
}

// NewPublisher creates a publisher. Call Connect before publishing.
func NewPublisher(config Config) (*Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid NATS publisher config: %w", err)
	}
	return &Publisher{config: config}, nil
}

// Connect establishes the NATS connection, creates the JetStream context,
// and ensures the job stream exists.
func (p *Publisher) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.MaxReconnects(p.config.MaxReconnects),
		nats.ReconnectWait(p.config.ReconnectWait),
		nats.Timeout(connectTimeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slogger.InfoNoCtx("NATS publisher reconnected", nil)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slogger.WarnNoCtx("NATS publisher disconnected", slogger.Fields{
				"error": fmt.Sprintf("%v", err),
			})
		}),
	}

	conn, err := nats.Connect(p.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.js = js
	p.mu.Unlock()

	slogger.Info(ctx, "NATS publisher connected", slogger.Fields{
		"url":    p.config.URL,
		"stream": StreamName,
	})
	return nil
}

// ensureStream creates the job stream if it does not exist yet.
func ensureStream(js nats.JetStreamContext) error {
	streamConfig := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"vectorize.>"},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
		MaxAge:    streamMaxAge,
		Replicas:  1,
	}

	if _, err := js.AddStream(streamConfig); err != nil {
		if _, infoErr := js.StreamInfo(StreamName); infoErr == nil {
			return nil
		}
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return nil
}

// PublishVectorizeJob publishes one job message and waits for the stream ack.
func (p *Publisher) PublishVectorizeJob(ctx context.Context, message outbound.VectorizeJobMessage) error {
	if err := validateMessage(message); err != nil {
		return err
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	js := p.js
	p.mu.RUnlock()
	if js == nil {
		return errors.New("not connected to NATS")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	if _, err := js.Publish(SubjectVectorizeJob, data, nats.Context(ctx)); err != nil {
		p.mu.Lock()
		p.failedCount++
		p.mu.Unlock()
		return fmt.Errorf("failed to publish job message: %w", err)
	}

	p.mu.Lock()
	p.publishedCount++
	p.mu.Unlock()

	slogger.Info(ctx, "Published vectorize job", slogger.Fields{
		"job_id":   message.JobID.String(),
		"tenant":   message.Tenant,
		"repo_url": message.RepoURL,
	})
	return nil
}

// PublishJobStatus broadcasts one job state snapshot over core NATS.
// Status updates are best-effort fan-out: there is no stream behind the
// subject and no ack, listeners that are down simply miss the update and
// catch up on the next one.
func (p *Publisher) PublishJobStatus(_ context.Context, message outbound.JobStatusMessage) error {
	if message.JobID == uuid.Nil {
		return errors.New("job ID cannot be nil")
	}

	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return errors.New("not connected to NATS")
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal job status message: %w", err)
	}
	if err := conn.Publish(SubjectJobStatus, data); err != nil {
		return fmt.Errorf("failed to publish job status message: %w", err)
	}
	return nil
}

func validateMessage(message outbound.VectorizeJobMessage) error {
	if message.JobID == uuid.Nil {
		return errors.New("job ID cannot be nil")
	}
	if message.Tenant == "" {
		return errors.New("tenant cannot be empty")
	}
	if message.RepoURL == "" {
		return errors.New("repository URL cannot be empty")
	}
	return nil
}

// IsConnected reports whether the underlying NATS connection is up.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.conn.IsConnected()
}

// Counts returns the number of successful and failed publishes.
func (p *Publisher) Counts() (published, failed int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.publishedCount, p.failedCount
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.js = nil
	}
	return nil
}
