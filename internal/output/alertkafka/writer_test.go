package alertkafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/pkg/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestWriterKeysByUser(t *testing.T) {
	fw := &fakeWriter{}
	w := NewWriterWith(fw, 0)

	require.NoError(t, w.WriteAlerts([]*models.Alert{
		{AlertID: "a1", User: "alice", Severity: "HIGH", ThreatType: "BRUTE_FORCE"},
		nil,
	}))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "alice", string(fw.msgs[0].Key))
	assert.Equal(t, "severity", fw.msgs[0].Headers[0].Key)
	assert.Equal(t, "HIGH", string(fw.msgs[0].Headers[0].Value))
	assert.Contains(t, string(fw.msgs[0].Value), `"alert_id":"a1"`)

	require.NoError(t, w.WriteAlerts(nil))
	assert.Len(t, fw.msgs, 1)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestNewWriterRequiresBrokers(t *testing.T) {
	_, err := NewWriter(Config{})
	assert.Error(t, err)
}
