package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarp/medical-api/pkg/messaging"
)

func TestEncode(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("ART", -3*3600))

	body, err := encode(messaging.EventVisitCreated, map[string]string{"visit_id": "v1"}, at)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"visit.created","occurred_at":"2024-01-01T12:00:00Z","payload":{"visit_id":"v1"}}`, string(body))
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := encode("x", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestNewPublisher_BadURL(t *testing.T) {
	_, err := NewPublisher(context.Background(), Config{URL: "://not-a-url"})
	assert.Error(t, err)
}
