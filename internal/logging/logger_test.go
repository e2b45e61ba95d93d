package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestSetLogger_CapturesOutput(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	Info().Msg("hidden")
	Warn().Str("guild", "g1").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"guild":"g1"`)
}

func TestInitGlobalLogger_WritesFile(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	path := filepath.Join(t.TempDir(), "antinuke.log")
	require.NoError(t, InitGlobalLogger("info", path, false))

	Error().Msg("written")
	require.NoError(t, Close())
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
}
