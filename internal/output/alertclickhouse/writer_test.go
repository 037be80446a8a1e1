package alertclickhouse

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/pkg/models"
)

func TestWriterInsertsJSONEachRow(t *testing.T) {
	var rows []Row
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		assert.Equal(t, "default", r.Header.Get("X-ClickHouse-User"))
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var row Row
			assert.NoError(t, json.Unmarshal(sc.Bytes(), &row))
			rows = append(rows, row)
		}
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL + "/", Database: "soc", Table: "al`erts", Username: "default"})
	require.NoError(t, err)

	err = w.WriteAlerts([]*models.Alert{{
		AlertID:   "a1",
		Severity:  "CRITICAL",
		RawEvents: []map[string]any{{"asset": "customer-db"}},
		Metadata:  map[string]any{"signal_id": "s1"},
	}, nil})
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO `soc`.`alerts` FORMAT JSONEachRow", query)
	require.Len(t, rows, 1)
	assert.Equal(t, "s1", rows[0].SignalID)
	assert.Equal(t, "customer-db", rows[0].Asset)
	assert.Equal(t, 1, rows[0].EventCount)
	assert.JSONEq(t, `{"signal_id":"s1"}`, rows[0].Metadata)
}

func TestWriterStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "table missing", http.StatusNotFound)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	require.NoError(t, err)
	err = w.WriteAlerts([]*models.Alert{{AlertID: "a1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table missing")
}

func TestRowFromMetadataAsset(t *testing.T) {
	row, err := RowFrom(&models.Alert{AlertID: "a", Metadata: map[string]any{"asset": "payment-gateway"}})
	require.NoError(t, err)
	assert.Equal(t, "payment-gateway", row.Asset)
	assert.Equal(t, []string{}, row.AgentTrace)
	assert.Equal(t, "null", row.RawEvents)
}
