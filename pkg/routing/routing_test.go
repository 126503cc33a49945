package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/contracts"
)

func TestStaticDirectoryClaimsInOrder(t *testing.T) {
	ctx := context.Background()
	d := NewStaticDirectory("agent_003", "agent_001", "agent_002")

	first, ok := d.NextAvailable(ctx)
	require.True(t, ok)
	assert.Equal(t, "agent_001", first)

	second, ok := d.NextAvailable(ctx)
	require.True(t, ok)
	assert.Equal(t, "agent_002", second)

	third, ok := d.NextAvailable(ctx)
	require.True(t, ok)
	assert.Equal(t, "agent_003", third)

	_, ok = d.NextAvailable(ctx)
	assert.False(t, ok)
}

func TestStaticDirectoryRelease(t *testing.T) {
	ctx := context.Background()
	d := NewStaticDirectory("agent_001")

	claimed, ok := d.NextAvailable(ctx)
	require.True(t, ok)
	_, ok = d.NextAvailable(ctx)
	require.False(t, ok)

	d.Release(ctx, claimed)
	again, ok := d.NextAvailable(ctx)
	require.True(t, ok)
	assert.Equal(t, claimed, again)
}

func TestStaticDirectorySetAvailable(t *testing.T) {
	ctx := context.Background()
	d := NewStaticDirectory()

	_, ok := d.NextAvailable(ctx)
	require.False(t, ok)

	d.SetAvailable("agent_007", true)
	got, ok := d.NextAvailable(ctx)
	require.True(t, ok)
	assert.Equal(t, "agent_007", got)

	d.SetAvailable("agent_008", true)
	d.SetAvailable("agent_008", false)
	_, ok = d.NextAvailable(ctx)
	assert.False(t, ok)
}

func TestStaticAuthorizer(t *testing.T) {
	ctx := context.Background()
	a := NewStaticAuthorizer("agent_001")

	assert.True(t, a.AllowOutbound(ctx, "agent_001"))
	assert.False(t, a.AllowOutbound(ctx, "agent_002"))

	a.Grant("agent_002", true)
	assert.True(t, a.AllowOutbound(ctx, "agent_002"))

	a.Grant("agent_001", false)
	assert.False(t, a.AllowOutbound(ctx, "agent_001"))
}

func TestAllowAll(t *testing.T) {
	assert.True(t, AllowAll().AllowOutbound(context.Background(), "anyone"))
}

func TestAuditNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := AuditNotifier(audit.NewLoggerWithWriter(&buf))

	n.Escalate(context.Background(), Escalation{
		CallID:   "call_1",
		AgentID:  "agent_001",
		Severity: contracts.SeverityCritical,
		Reason:   "critical DLP violation",
	})

	line := strings.TrimPrefix(strings.TrimSpace(buf.String()), "AUDIT: ")
	var event audit.Event
	require.NoError(t, json.Unmarshal([]byte(line), &event))
	assert.Equal(t, audit.EventManagerEscalation, event.Type)
	assert.Equal(t, "call_1", event.CallID)
	assert.Equal(t, "agent_001", event.AgentID)
	assert.Equal(t, "critical", event.Metadata["severity"])
}

func TestNopNotifier(t *testing.T) {
	assert.NotPanics(t, func() {
		NopNotifier().Escalate(context.Background(), Escalation{})
	})
}
