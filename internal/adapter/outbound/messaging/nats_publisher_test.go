package messaging

import (
	"codevectorizer/internal/port/outbound"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "valid", config: Config{URL: "nats://localhost:4222"}},
		{name: "empty url", config: Config{}, wantErr: "cannot be empty"},
		{name: "wrong scheme", config: Config{URL: "http://localhost:4222"}, wantErr: "scheme"},
		{
			name:    "negative reconnects",
			config:  Config{URL: "nats://localhost:4222", MaxReconnects: -1},
			wantErr: "max reconnects",
		},
		{
			name:    "negative reconnect wait",
			config:  Config{URL: "nats://localhost:4222", ReconnectWait: -time.Second},
			wantErr: "reconnect wait",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateMessage(t *testing.T) {
	valid := outbound.VectorizeJobMessage{
		JobID:   uuid.New(),
		Tenant:  "acme",
		RepoURL: "https://github.com/acme/svc",
	}
	assert.NoError(t, validateMessage(valid))

	missingID := valid
	missingID.JobID = uuid.Nil
	assert.Error(t, validateMessage(missingID))

	missingTenant := valid
	missingTenant.Tenant = ""
	assert.Error(t, validateMessage(missingTenant))

	missingURL := valid
	missingURL.RepoURL = ""
	assert.Error(t, validateMessage(missingURL))
}

func TestIsConnected_BeforeConnect(t *testing.T) {
	publisher, err := NewPublisher(Config{URL: "nats://localhost:4222"})
	require.NoError(t, err)
	assert.False(t, publisher.IsConnected())
}

func TestPublishVectorizeJob_NotConnected(t *testing.T) {
	publisher, err := NewPublisher(Config{URL: "nats://localhost:4222"})
	require.NoError(t, err)

	err = publisher.PublishVectorizeJob(context.Background(), outbound.VectorizeJobMessage{
		JobID:   uuid.New(),
		Tenant:  "acme",
		RepoURL: "https://github.com/acme/svc",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	published, failed := publisher.Counts()
	assert.Zero(t, published)
	assert.Zero(t, failed)
}

func TestPublishJobStatus_Validation(t *testing.T) {
	publisher, err := NewPublisher(Config{URL: "nats://localhost:4222"})
	require.NoError(t, err)

	err = publisher.PublishJobStatus(context.Background(), outbound.JobStatusMessage{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job ID")

	err = publisher.PublishJobStatus(context.Background(), outbound.JobStatusMessage{
		JobID:  uuid.New(),
		Tenant: "acme",
		Status: "processing",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
