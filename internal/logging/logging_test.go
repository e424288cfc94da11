package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, hclog.Debug, Level("DEBUG"))
	assert.Equal(t, hclog.Warn, Level("warning"))
	assert.Equal(t, hclog.Off, Level("off"))
	assert.Equal(t, hclog.Info, Level(""))
	assert.Equal(t, hclog.Info, Level("chatty"))
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})
	log.Info("hidden")
	log.Named("engine").Warn("rule failed", "rule", "NULL-DEREF")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "factlint.engine")
	assert.Contains(t, out, "rule=NULL-DEREF")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Level: "info", JSON: true, Output: &buf}).Info("started", "units", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "started", rec["@message"])
	assert.Equal(t, float64(3), rec["units"])
}
