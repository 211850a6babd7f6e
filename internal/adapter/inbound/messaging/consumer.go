package messaging

import (
	outboundmsg "codevectorizer/internal/adapter/outbound/messaging"
	"codevectorizer/internal/application/common/slogger"
	"codevectorizer/internal/port/inbound"
	"codevectorizer/internal/port/outbound"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	defaultAckWait        = 30 * time.Minute
	defaultMaxDeliver     = 3
	defaultMaxAckPending  = 4
	defaultProcessTimeout = 30 * time.Minute
	connectTimeout        = 5 * time.Second
)

// ConsumerConfig holds settings for the job consumer.
type ConsumerConfig struct {
	URL            string
	Subject        string
	QueueGroup     string
	DurableName    string
	AckWait        time.Duration
	MaxDeliver     int
	MaxAckPending  int
	ProcessTimeout time.Duration
}

func (c *ConsumerConfig) applyDefaults() {
	if c.Subject == "" {
		c.Subject = outboundmsg.SubjectVectorizeJob
	}
	if c.QueueGroup == "" {
		c.QueueGroup = "vectorize-workers"
	}
	if c.DurableName == "" {
		c.DurableName = "vectorize-worker"
	}
	if c.AckWait <= 0 {
		c.AckWait = defaultAckWait
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = defaultMaxDeliver
	}
	if c.MaxAckPending <= 0 {
		c.MaxAckPending = defaultMaxAckPending
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = defaultProcessTimeout
	}
}

// Validate checks required consumer settings.
func (c *ConsumerConfig) Validate() error {
	if c.URL == "" {
		return errors.New("NATS URL cannot be empty")
	}
	return nil
}

// NATSConsumer pulls vectorization job messages off the work queue and
// runs them through a JobProcessor. Messages are acknowledged only after
// processing succeeds; failures are negatively acknowledged so the server
// redelivers them up to MaxDeliver times.
type NATSConsumer struct {
	config    ConsumerConfig
	processor inbound.JobProcessor

	mu           sync.RWMutex
	conn         *nats.Conn
	subscription *nats.Subscription
	running      bool
	handled      int64
	errorCount   int64
	lastError    string
}

// NewNATSConsumer creates a consumer for the vectorize job subject.
func NewNATSConsumer(config ConsumerConfig, processor inbound.JobProcessor) (*NATSConsumer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid consumer configuration: %w", err)
	}
	if processor == nil {
		return nil, errors.New("job processor cannot be nil")
	}
	config.applyDefaults()

	return &NATSConsumer{
		config:    config,
		processor: processor,
	}, nil
}

// Start connects to NATS and begins consuming job messages.
func (n *NATSConsumer) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return fmt.Errorf("consumer already running for subject %s", n.config.Subject)
	}

	conn, err := nats.Connect(n.config.URL,
		nats.Timeout(connectTimeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slogger.InfoNoCtx("NATS consumer reconnected", nil)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	sub, err := js.QueueSubscribe(n.config.Subject, n.config.QueueGroup, n.handleMessage,
		nats.Durable(n.config.DurableName),
		nats.ManualAck(),
		nats.AckWait(n.config.AckWait),
		nats.MaxDeliver(n.config.MaxDeliver),
		nats.MaxAckPending(n.config.MaxAckPending),
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", n.config.Subject, err)
	}

	n.conn = conn
	n.subscription = sub
	n.running = true

	slogger.Info(ctx, "Job consumer started", slogger.Fields{
		"subject":     n.config.Subject,
		"queue_group": n.config.QueueGroup,
	})
	return nil
}

// Stop drains the subscription and closes the connection. Stopping a
// consumer that is not running is a no-op.
func (n *NATSConsumer) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.running {
		return nil
	}

	if n.subscription != nil {
		if err := n.subscription.Drain(); err != nil {
			slogger.Warn(ctx, "Failed to drain subscription", slogger.Fields{
				"error": err.Error(),
			})
		}
		n.subscription = nil
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
	n.running = false

	slogger.Info(ctx, "Job consumer stopped", nil)
	return nil
}

// Health returns the current consumer state.
func (n *NATSConsumer) Health() inbound.ConsumerHealth {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return inbound.ConsumerHealth{
		Running:         n.running,
		Connected:       n.conn != nil && n.conn.IsConnected(),
		QueueGroup:      n.config.QueueGroup,
		Subject:         n.config.Subject,
		MessagesHandled: n.handled,
		ErrorCount:      n.errorCount,
		LastError:       n.lastError,
	}
}

func (n *NATSConsumer) handleMessage(msg *nats.Msg) {
	message, err := decodeJobMessage(msg.Data)
	if err != nil {
		n.recordError(fmt.Sprintf("invalid job message: %v", err))
		slogger.ErrorNoCtx("Discarding malformed job message", slogger.Fields{
			"error": err.Error(),
		})
		// Malformed messages never become valid, terminate delivery.
		_ = msg.Term()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.config.ProcessTimeout)
	defer cancel()

	if err := n.processor.ProcessJob(ctx, message); err != nil {
		n.recordError(fmt.Sprintf("job processing failed: %v", err))
		slogger.ErrorWithError(ctx, err, "Job processing failed", slogger.Fields{
			"job_id": message.JobID.String(),
			"tenant": message.Tenant,
		})
		_ = msg.Nak()
		return
	}

	n.mu.Lock()
	n.handled++
	n.mu.Unlock()
	_ = msg.Ack()
}

func decodeJobMessage(data []byte) (outbound.VectorizeJobMessage, error) {
	var message outbound.VectorizeJobMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return message, fmt.Errorf("failed to unmarshal: %w", err)
	}
	if message.JobID == uuid.Nil {
		return message, errors.New("job ID cannot be nil")
	}
	if message.Tenant == "" {
		return message, errors.New("tenant cannot be empty")
	}
	if message.RepoURL == "" {
		return message, errors.New("repository URL cannot be empty")
	}
	return message, nil
}

func (n *NATSConsumer) recordError(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errorCount++
	n.lastError = msg
}
