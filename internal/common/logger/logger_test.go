package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapAdapter_FieldsAndSubjectScope(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := ForSubject(NewZapAdapter(zap.New(core)), "subj-1")

	log.WithError(errors.New("boom")).Warn("cache miss", map[string]interface{}{
		"attempt": 2,
		"cause":   errors.New("dial tcp"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "cache miss", entries[0].Message)
		assert.Equal(t, "subj-1", ctx["subjectId"])
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "dial tcp", ctx["cause"])
		assert.EqualValues(t, 2, ctx["attempt"])
	}
}

func TestNoOpLogger_DoesNotPanic(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Info("hello", nil)
		log.WithFields(map[string]interface{}{"a": 1}).Error("bye", nil)
	})
}
