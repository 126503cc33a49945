package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linedesk/callcore/pkg/contracts"
	"github.com/linedesk/callcore/pkg/dlp"
	"github.com/linedesk/callcore/pkg/verification"
)

func startCall(t *testing.T, env *testEnv) contracts.CallSession {
	t.Helper()
	sess, err := env.registry.HandleInboundCall(context.Background(), "+15551234567", "Dana Smith", "")
	require.NoError(t, err)
	return sess
}

func TestProcessUtteranceClean(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	res, err := env.registry.ProcessUtterance(ctx, sess.ID, "How can I help you today?", contracts.SpeakerAgent)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.DLPCheckPassed)
	assert.Equal(t, contracts.ActionNone, res.Action)

	snap, err := env.registry.Session(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ChecksPassed)
	assert.Zero(t, snap.ChecksFailed)
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, "How can I help you today?", snap.Transcript[0].Text)
	assert.True(t, snap.Transcript[0].DLPPassed)
	assert.Empty(t, env.escalations.All())
}

func TestProcessUtteranceAgentCriticalViolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	res, err := env.registry.ProcessUtterance(ctx, sess.ID, "Your card number is 4111111111111111", contracts.SpeakerAgent)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.DLPCheckPassed)
	assert.Equal(t, contracts.ActionMuteAgent, res.Action)
	assert.Equal(t, contracts.CategoryBanking, res.Category)
	assert.True(t, res.EscalateToManager)

	snap, err := env.registry.Session(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ChecksFailed)
	require.Len(t, snap.Violations, 1)
	assert.Equal(t, contracts.SpeakerAgent, snap.Violations[0].Speaker)
	assert.Equal(t, contracts.SeverityCritical, snap.Violations[0].Severity)

	// The flagged text never reaches the transcript.
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, dlp.RedactedText, snap.Transcript[0].Text)
	assert.False(t, snap.Transcript[0].DLPPassed)

	escalations := env.escalations.All()
	require.Len(t, escalations, 1)
	assert.Equal(t, sess.ID, escalations[0].CallID)
	assert.Equal(t, contracts.SeverityCritical, escalations[0].Severity)
}

func TestProcessUtteranceAgentHighSeverityMutesWithoutEscalation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	res, err := env.registry.ProcessUtterance(ctx, sess.ID, "the password is hunter2", contracts.SpeakerAgent)
	require.NoError(t, err)
	assert.Equal(t, contracts.ActionMuteAgent, res.Action)
	assert.Equal(t, contracts.CategoryConfidential, res.Category)
	assert.False(t, res.EscalateToManager)
	assert.Empty(t, env.escalations.All())
}

func TestProcessUtteranceCallerCriticalRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	res, err := env.registry.ProcessUtterance(ctx, sess.ID, "My SSN is 123-45-6789", contracts.SpeakerCaller)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, contracts.ActionRequireAdminCheck, res.Action)
	assert.Equal(t, contracts.CategoryPersonal, res.Category)
	assert.True(t, res.NeedsAdminVerification)
	assert.False(t, res.EscalateToManager)
	assert.Empty(t, env.escalations.All())
}

func TestProcessUtteranceCallerNonCriticalIsLoggedUnblocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	res, err := env.registry.ProcessUtterance(ctx, sess.ID, "this is all very confidential", contracts.SpeakerCaller)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.DLPCheckPassed)
	assert.Equal(t, contracts.ActionNone, res.Action)
	assert.False(t, res.NeedsAdminVerification)

	// Logged and redacted even though unblocked.
	snap, err := env.registry.Session(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ChecksFailed)
	assert.Len(t, snap.Violations, 1)
	assert.Equal(t, dlp.RedactedText, snap.Transcript[0].Text)
}

func TestProcessUtteranceUnknownCall(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.registry.ProcessUtterance(context.Background(), "call_missing", "hello", contracts.SpeakerCaller)
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestVerifyAdminPassphraseSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	require.NoError(t, env.credentials.Put(ctx, "agent_001", env.digester.Digest("blue horizon")))

	res, err := env.registry.VerifyAdminPassphrase(ctx, sess.ID, "agent_001", "blue horizon")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, 2, res.RemainingAttempts)

	snap, err := env.registry.Session(sess.ID)
	require.NoError(t, err)
	assert.True(t, snap.VerificationPassed)
	require.Len(t, snap.VerificationAttempts, 1)
	assert.True(t, snap.VerificationAttempts[0].Matched)
}

func TestVerifyAdminPassphraseLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	require.NoError(t, env.credentials.Put(ctx, "agent_001", env.digester.Digest("blue horizon")))

	for i := 1; i <= 2; i++ {
		res, err := env.registry.VerifyAdminPassphrase(ctx, sess.ID, "agent_001", "wrong guess")
		require.NoError(t, err)
		assert.False(t, res.Verified)
		assert.Equal(t, 3-i, res.RemainingAttempts)
	}

	res, err := env.registry.VerifyAdminPassphrase(ctx, sess.ID, "agent_001", "wrong guess")
	require.NoError(t, err)
	assert.True(t, res.EscalateToManager)

	escalations := env.escalations.All()
	require.Len(t, escalations, 1)
	assert.Equal(t, sess.ID, escalations[0].CallID)

	// The fourth attempt is rejected outright, even with the right phrase,
	// and records nothing.
	res, err = env.registry.VerifyAdminPassphrase(ctx, sess.ID, "agent_001", "blue horizon")
	assert.ErrorIs(t, err, ErrVerificationLocked)
	assert.True(t, res.EscalateToManager)

	snap, err := env.registry.Session(sess.ID)
	require.NoError(t, err)
	assert.True(t, snap.VerificationLocked)
	assert.False(t, snap.VerificationPassed)
	assert.Len(t, snap.VerificationAttempts, 3)
}

func TestVerifyAdminPassphraseNoCredential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sess := startCall(t, env)

	_, err := env.registry.VerifyAdminPassphrase(ctx, sess.ID, "agent_unknown", "anything")
	assert.ErrorIs(t, err, verification.ErrNoCredential)

	// Failed credential lookups record no attempt.
	snap, err := env.registry.Session(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.VerificationAttempts)
}

func TestVerifyAdminPassphraseUnknownCall(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.registry.VerifyAdminPassphrase(context.Background(), "call_missing", "agent_001", "phrase")
	assert.ErrorIs(t, err, ErrCallNotFound)
}
