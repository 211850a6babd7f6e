package messaging

import (
	"codevectorizer/internal/port/outbound"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopProcessor struct{}

func (nopProcessor) ProcessJob(_ context.Context, _ outbound.VectorizeJobMessage) error {
	return nil
}

func TestNewNATSConsumer_Validation(t *testing.T) {
	_, err := NewNATSConsumer(ConsumerConfig{}, nopProcessor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS URL")

	_, err = NewNATSConsumer(ConsumerConfig{URL: "nats://localhost:4222"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job processor")
}

func TestNewNATSConsumer_Defaults(t *testing.T) {
	consumer, err := NewNATSConsumer(ConsumerConfig{URL: "nats://localhost:4222"}, nopProcessor{})
	require.NoError(t, err)

	assert.Equal(t, "vectorize.job", consumer.config.Subject)
	assert.Equal(t, "vectorize-workers", consumer.config.QueueGroup)
	assert.Equal(t, "vectorize-worker", consumer.config.DurableName)
	assert.Equal(t, defaultAckWait, consumer.config.AckWait)
	assert.Equal(t, defaultMaxDeliver, consumer.config.MaxDeliver)

	health := consumer.Health()
	assert.False(t, health.Running)
	assert.Equal(t, "vectorize-workers", health.QueueGroup)
}

func TestDecodeJobMessage(t *testing.T) {
	valid := outbound.VectorizeJobMessage{
		JobID:     uuid.New(),
		Tenant:    "acme",
		RepoName:  "svc",
		RepoURL:   "https://github.com/acme/svc",
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(valid)
	require.NoError(t, err)

	decoded, err := decodeJobMessage(data)
	require.NoError(t, err)
	assert.Equal(t, valid.JobID, decoded.JobID)
	assert.Equal(t, "acme", decoded.Tenant)

	tests := []struct {
		name    string
		mutate  func(m *outbound.VectorizeJobMessage)
		wantErr string
	}{
		{"nil job id", func(m *outbound.VectorizeJobMessage) { m.JobID = uuid.Nil }, "job ID"},
		{"empty tenant", func(m *outbound.VectorizeJobMessage) { m.Tenant = "" }, "tenant"},
		{"empty repo url", func(m *outbound.VectorizeJobMessage) { m.RepoURL = "" }, "repository URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)
			data, err := json.Marshal(msg)
			require.NoError(t, err)

			_, err = decodeJobMessage(data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err = decodeJobMessage([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}
