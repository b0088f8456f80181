package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/quantdesk/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	symLog := WithSymbol(log, "AAPL")
	symLog.Warn().Msg("expired contracts in horizon")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "AAPL", rec["symbol"])
	assert.Equal(t, "warn", rec["level"])
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "quantdesk.log")
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1}, &buf)
	opLog := WithOperation(log, "surface")
	opLog.Info().Msg("grid built")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operation":"surface"`)
	assert.Contains(t, buf.String(), "grid built")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	ctx := WithLogger(context.Background(), log)

	ctxLog := FromContext(ctx)
	LogAPICall(ctxLog, "yahoo", "/v7/finance/options/AAPL", 120*time.Millisecond, errors.New("boom"))
	assert.Contains(t, buf.String(), `"provider":"yahoo"`)
	assert.Contains(t, buf.String(), "boom")

	// Missing logger falls back to a no-op.
	nop := FromContext(context.Background())
	nop.Error().Msg("dropped")
}
