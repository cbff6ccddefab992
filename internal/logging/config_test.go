package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestResolve_Profiles(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogTimestamp, "")
	t.Setenv(EnvLogNoColor, "")

	runtime := Resolve(ProfileRuntime, "")
	assert.Equal(t, zerolog.InfoLevel, runtime.Level)
	assert.True(t, runtime.Timestamp)

	test := Resolve(ProfileTest, "")
	assert.Equal(t, zerolog.DebugLevel, test.Level)
	assert.False(t, test.Timestamp)
}

func TestResolve_Overrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")

	cfg := Resolve(ProfileRuntime, "warn")
	assert.Equal(t, zerolog.WarnLevel, cfg.Level)
	assert.False(t, cfg.Timestamp)
	assert.True(t, cfg.NoColor)

	t.Setenv(EnvLogLevel, "error")
	cfg = Resolve(ProfileRuntime, "warn")
	assert.Equal(t, zerolog.ErrorLevel, cfg.Level, "environment wins over the configured level")
}

func TestParseLevel(t *testing.T) {
	tt := []struct {
		raw      string
		expected zerolog.Level
		ok       bool
	}{
		{"", zerolog.InfoLevel, false},
		{"TRACE", zerolog.TraceLevel, true},
		{" debug ", zerolog.DebugLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"verbose", zerolog.InfoLevel, false},
	}
	for _, tc := range tt {
		t.Run(tc.raw, func(t *testing.T) {
			level, ok := ParseLevel(tc.raw)
			assert.Equal(t, tc.expected, level)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestApply(t *testing.T) {
	previous := log.Logger
	previousLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
	}()

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.WarnLevel, NoColor: true, Out: &buf})

	log.Info().Msg("hidden")
	log.Warn().Str("id", "0x00010001").Msg("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "id=0x00010001")
}

func TestResolve_MalformedSwitchesIgnored(t *testing.T) {
	t.Setenv(EnvLogLevel, "loud")
	t.Setenv(EnvLogTimestamp, "sometimes")
	t.Setenv(EnvLogNoColor, "")

	cfg := Resolve(ProfileRuntime, "")
	assert.Equal(t, zerolog.InfoLevel, cfg.Level)
	assert.True(t, cfg.Timestamp)
	assert.False(t, cfg.NoColor)
}
