package logging

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New("warn", false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", false)
	require.Error(t, err)
}

func TestIsRateLimit(t *testing.T) {
	assert.False(t, IsRateLimit(nil))
	assert.False(t, IsRateLimit(errors.New("boom")))
	assert.True(t, IsRateLimit(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRateLimit(fmt.Errorf("send: %w", &discordgo.RateLimitError{RateLimit: &discordgo.RateLimit{}})))

	rest := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	assert.True(t, IsRateLimit(fmt.Errorf("send: %w", rest)))
	rest = &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	assert.False(t, IsRateLimit(rest))
}
