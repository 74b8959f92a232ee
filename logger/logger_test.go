package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFieldsAreLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWriter(buf)

	l.WithStr("peer", "10.0.0.2:8531").
		WithInt("items", 3).
		WithErr(errors.New("boom")).
		Warn("transfer failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "transfer failed", line["message"])
	assert.Equal(t, "10.0.0.2:8531", line["peer"])
	assert.Equal(t, float64(3), line["items"])
	assert.Equal(t, "boom", line["error"])
}

func TestWithDoesNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWriter(buf)

	_ = l.WithStr("state", "recv")
	l.Info("plain")

	assert.False(t, strings.Contains(buf.String(), "state"))
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.WithAny("k", []int{1, 2}).Error("ignored")
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/test.log"

	l := New()
	l.Init(path)
	l.Info("hello")

	// lumberjack opens the file lazily on first write
	assert.FileExists(t, path)
}
