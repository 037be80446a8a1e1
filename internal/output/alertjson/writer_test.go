package alertjson

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/pkg/models"
)

func TestWriterAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "alerts.jsonl")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteAlerts([]*models.Alert{{AlertID: "a1", Severity: "HIGH"}, nil}))
	require.NoError(t, w.Close())

	w, err = NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteAlerts([]*models.Alert{{AlertID: "a2", Severity: "LOW"}}))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a models.Alert
		require.NoError(t, json.Unmarshal(sc.Bytes(), &a))
		ids = append(ids, a.AlertID)
	}
	assert.Equal(t, []string{"a1", "a2"}, ids)
}
