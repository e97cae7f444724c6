package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, newLogger(&bytes.Buffer{}, in).GetLevel(), in)
	}
}

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "info")
	log.Debug().Msg("hidden")
	log.Info().Str("order_id", "abc").Msg("order opened")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "restopos", line["service"])
	assert.Equal(t, "abc", line["order_id"])
	assert.Equal(t, "order opened", line["message"])
	assert.Contains(t, line, "time")
}
