package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gudangmitra/gudang-mitra-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/gm/topics/request-events", topicResourceName("gm", "request-events"))
	require.Equal(t, "projects/other/topics/x", topicResourceName("gm", "projects/other/topics/x"))
	require.Empty(t, topicResourceName("", "request-events"))
	require.Empty(t, topicResourceName("gm", "  "))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{RequestEventsTopic: "t"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	_, err := c.Publish(context.Background(), "t", Message{Data: []byte("{}")})
	require.ErrorIs(t, err, errNotInitialized)
	require.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	require.NoError(t, c.Close())
}
