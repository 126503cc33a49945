package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredEvents(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&buf)

	err := log.Record(context.Background(), EventSpeechProcessed, "call_1", "agent_001", map[string]interface{}{
		"dlp_result": "PASSED",
	})
	require.NoError(t, err)

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))
	require.True(t, strings.HasSuffix(line, "\n"))

	var event Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "AUDIT: ")), &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventSpeechProcessed, event.Type)
	assert.Equal(t, "call_1", event.CallID)
	assert.Equal(t, "agent_001", event.AgentID)
	assert.Equal(t, "PASSED", event.Metadata["dlp_result"])
	assert.False(t, event.Timestamp.IsZero())
}

func TestLoggerOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&buf)
	ctx := context.Background()

	require.NoError(t, log.Record(ctx, EventCallRouted, "call_1", "agent_001", nil))
	require.NoError(t, log.Record(ctx, EventCallCompleted, "call_1", "agent_001", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "AUDIT: "))
	}
}

func TestLoggerEventIDsAreUnique(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&buf)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		buf.Reset()
		require.NoError(t, log.Record(ctx, EventCallQueued, "call_1", "", nil))
		var event Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(buf.String()), "AUDIT: ")), &event))
		assert.False(t, seen[event.ID])
		seen[event.ID] = true
	}
}

func TestNopLogger(t *testing.T) {
	assert.NoError(t, Nop().Record(context.Background(), EventCallRouted, "call_1", "", nil))
}
