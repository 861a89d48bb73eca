package logger

import (
	"log/slog"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "...", truncateString("abcdef", 2))
	assert.Equal(t, "ééé...", truncateString("éééééééé", 6))
}

func TestUpdateAttrs(t *testing.T) {
	update := &models.Update{
		ID: 7,
		Message: &models.Message{
			ID:   3,
			Chat: models.Chat{ID: 42},
			From: &models.User{ID: 9, Username: "alice"},
			Text: "@somebot",
		},
	}

	attrs := UpdateAttrs(update)
	kv := map[any]any{}
	for i := 0; i+1 < len(attrs); i += 2 {
		kv[attrs[i]] = attrs[i+1]
	}

	assert.Equal(t, "message", kv["update_type"])
	assert.Equal(t, int64(42), kv["chat_id"])
	assert.Equal(t, "alice", kv["username"])

	other := UpdateAttrs(&models.Update{ID: 8})
	assert.Contains(t, other, "other")
}
