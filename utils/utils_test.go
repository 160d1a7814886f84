package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", TruncateUTF8("short", 10))
	assert.Equal(t, "abc", TruncateUTF8("abcdef", 3))
	// "é" is two bytes; a cut inside it drops the partial rune
	assert.Equal(t, "aé", TruncateUTF8("aéé", 4))
	assert.Equal(t, "", TruncateUTF8("é", 1))
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, EndpointKey, "/api/v1/bulk-import")
	ContextLogger(ctx, base).Info("with request")
	ContextLogger(context.Background(), base).Info("bare")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "/api/v1/bulk-import", fields["endpoint"])
		assert.Empty(t, entries[1].ContextMap())
	}

	assert.NotNil(t, ContextLogger(ctx, nil))
}
