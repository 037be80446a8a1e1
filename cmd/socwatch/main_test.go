package main

import (
	"context"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socwatch/config"
	"socwatch/internal/output/alertjson"
	"socwatch/internal/pipeline"
	"socwatch/internal/rules"
	"socwatch/internal/sparkline"
	"socwatch/internal/storage"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"dashboard", "serve", "generate", "alerts", "chat", "heartbeat"}, names)

	for _, flag := range []string{"config", "api-url", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestOpenAlertWriterModes(t *testing.T) {
	dir := t.TempDir()

	w, err := openAlertWriter(config.OutputConfig{Mode: "none"})
	require.NoError(t, err)
	assert.Nil(t, w)

	w, err = openAlertWriter(config.OutputConfig{Mode: "file", File: config.FileOutputConfig{Path: filepath.Join(dir, "a.jsonl")}})
	require.NoError(t, err)
	assert.IsType(t, &alertjson.Writer{}, w)
	require.NoError(t, w.Close())

	w, err = openAlertWriter(config.OutputConfig{
		Mode: "file, http",
		File: config.FileOutputConfig{Path: filepath.Join(dir, "b.jsonl")},
		HTTP: config.HTTPOutputConfig{URL: "http://127.0.0.1:1/alerts"},
	})
	require.NoError(t, err)
	multi, ok := w.(pipeline.MultiAlertWriter)
	require.True(t, ok)
	assert.Len(t, multi, 2)
	require.NoError(t, w.Close())

	_, err = openAlertWriter(config.OutputConfig{Mode: "pigeon"})
	assert.ErrorContains(t, err, "unknown alert output mode")
}

func TestOpenPersisterModes(t *testing.T) {
	ctx := context.Background()

	p, err := openPersister(ctx, config.ServerConfig{Storage: config.StorageConfig{Mode: "memory"}})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = openPersister(ctx, config.ServerConfig{DataDir: t.TempDir(), Storage: config.StorageConfig{Mode: "file"}})
	require.NoError(t, err)
	assert.IsType(t, &storage.FilePersister{}, p)

	_, err = openPersister(ctx, config.ServerConfig{Storage: config.StorageConfig{Mode: "postgres"}})
	assert.ErrorContains(t, err, config.EnvPostgresDSN)

	_, err = openPersister(ctx, config.ServerConfig{Storage: config.StorageConfig{Mode: "tape"}})
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	e, err := loadRules(config.RulesConfig{})
	require.NoError(t, err)
	assert.IsType(t, &rules.NoopEngine{}, e)

	e, err = loadRules(config.RulesConfig{Enabled: true, Path: "  "})
	require.NoError(t, err)
	assert.IsType(t, &rules.NoopEngine{}, e)

	e, err = loadRules(config.RulesConfig{Enabled: true, Path: "../../rules/socwatch"})
	require.NoError(t, err)
	sigmaEngine, ok := e.(*rules.SigmaEngine)
	require.True(t, ok)
	assert.Equal(t, 3, sigmaEngine.Len())

	_, err = loadRules(config.RulesConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestRunServeReturnsWhenListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.SocWatch.Server.Listen = taken.Addr().String()
	cfg.SocWatch.Server.Storage.Mode = "memory"
	cfg.SocWatch.Server.ProcessorInterval = 10 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- runServe(context.Background(), cfg) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("runServe did not return after listen on %s failed", taken.Addr())
	}
}

func TestWriteHeartbeat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartbeat.svg")
	rows := []sparkline.Row{{Name: "SIEM Engine", Color: "green", History: []float64{10, 20, 15}}}

	require.NoError(t, writeHeartbeat(path, rows, rand.New(rand.NewSource(1))))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "<svg"))
	assert.Contains(t, string(data), "SIEM Engine")

	err = writeHeartbeat(filepath.Join(dir, "missing", "heartbeat.svg"), rows, rand.New(rand.NewSource(1)))
	assert.ErrorContains(t, err, "create")
}
