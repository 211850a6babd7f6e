package inbound

import (
	"codevectorizer/internal/port/outbound"
	"context"
)

// JobProcessor runs one vectorization job end to end. Implementations must
// be safe for concurrent calls with distinct jobs.
type JobProcessor interface {
	ProcessJob(ctx context.Context, message outbound.VectorizeJobMessage) error
}

// ConsumerHealth reports the state of a message consumer.
type ConsumerHealth struct {
	Running         bool   `json:"running"`
	Connected       bool   `json:"connected"`
	QueueGroup      string `json:"queue_group"`
	Subject         string `json:"subject"`
	MessagesHandled int64  `json:"messages_handled"`
	ErrorCount      int64  `json:"error_count"`
	LastError       string `json:"last_error,omitempty"`
}

// Consumer receives vectorization job messages from the work queue and
// hands them to a JobProcessor.
type Consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() ConsumerHealth
}
