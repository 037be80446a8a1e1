package alertnats

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/pkg/models"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	flushes  int
	closed   bool
	failPub  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.failPub != nil {
		return f.failPub
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Flush() error { f.flushes++; return nil }
func (f *fakeConn) Drain() error { return nil }
func (f *fakeConn) Close()       { f.closed = true }

func TestWriterPublishesPerAlert(t *testing.T) {
	conn := &fakeConn{}
	w := NewWriterWithConn(conn, "")

	require.NoError(t, w.WriteAlerts([]*models.Alert{{AlertID: "a1"}, nil, {AlertID: "a2"}}))
	assert.Equal(t, []string{"socwatch.alerts", "socwatch.alerts"}, conn.subjects)
	assert.Equal(t, 1, conn.flushes)

	var a models.Alert
	require.NoError(t, json.Unmarshal(conn.payloads[1], &a))
	assert.Equal(t, "a2", a.AlertID)

	require.NoError(t, w.Close())
	assert.True(t, conn.closed)
}

func TestWriterPublishError(t *testing.T) {
	conn := &fakeConn{failPub: errors.New("boom")}
	w := NewWriterWithConn(conn, "alerts")

	err := w.WriteAlerts([]*models.Alert{{AlertID: "a1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a1")
	assert.Zero(t, conn.flushes)
}
