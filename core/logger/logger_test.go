package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSessionEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	session := New(zap.New(core)).NewSession()

	session.RunCommand([]string{"ls", "-l"}, "/bin/ls")
	session.UnknownCommand([]string{"nope"}, errors.New("not found"))
	session.JobStarted(1, 1234, "sleep 5")
	session.JobDone(1, "sleep 5", 0)
	session.Error("history save", errors.New("read-only"))

	entries := logs.All()
	assert.Len(t, entries, 5)

	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
		assert.Equal(t, session.SessionID(), e.ContextMap()["session_id"])
	}
	assert.Equal(t, []string{"run_command", "unknown_command", "job_started", "job_done", "history_save"}, messages)

	unknown := entries[1].ContextMap()
	assert.Equal(t, "nope", unknown["name"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestSessionIDsDiffer(t *testing.T) {
	l := Nop()
	assert.NotEqual(t, l.NewSession().SessionID(), l.NewSession().SessionID())
	assert.Empty(t, l.Sessionless().SessionID())
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLinesLogger(&buf)
	l.NewSession().RunCommand([]string{"echo", "hi"}, "")
	assert.Nil(t, l.Sync())

	var entry map[string]interface{}
	assert.Nil(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run_command", entry["msg"])
	assert.Equal(t, []interface{}{"echo", "hi"}, entry["command"])
	assert.NotEmpty(t, entry["session_id"])
	assert.NotEmpty(t, entry["timestamp"])
}
