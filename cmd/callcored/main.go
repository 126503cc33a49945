// Command callcored wires the call engine together and runs a smoke
// scenario against it: an inbound call with clean and violating
// utterances, an admin verification, a full workflow pass, completion,
// and a manager-review read-back.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/linedesk/callcore/pkg/audit"
	"github.com/linedesk/callcore/pkg/config"
	"github.com/linedesk/callcore/pkg/contracts"
	"github.com/linedesk/callcore/pkg/dlp"
	"github.com/linedesk/callcore/pkg/history"
	"github.com/linedesk/callcore/pkg/observability"
	"github.com/linedesk/callcore/pkg/registry"
	"github.com/linedesk/callcore/pkg/routing"
	"github.com/linedesk/callcore/pkg/verification"

	_ "modernc.org/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("callcored failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	digester, err := verification.NewDigester([]byte(cfg.SiteSecret))
	if err != nil {
		return err
	}
	credentials, err := verification.NewSQLiteStore(db, []byte(cfg.SiteSecret))
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}
	archive, err := history.NewSQLiteStore(db)
	if err != nil {
		return fmt.Errorf("history store: %w", err)
	}

	rules := dlp.DefaultRuleSet()
	if cfg.RuleSetPath != "" {
		rules, err = dlp.LoadRuleSet(cfg.RuleSetPath)
		if err != nil {
			return fmt.Errorf("rule set: %w", err)
		}
	}

	var directory routing.AgentDirectory = routing.NewStaticDirectory("agent_001", "agent_002")
	if cfg.RedisAddr != "" {
		directory = routing.NewRedisDirectory(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:  "callcored",
		Environment:  "development",
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TelemetryOn,
		Insecure:     true,
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	auditLog := audit.NewLogger()

	eng := registry.New(digester, credentials, directory, routing.AllowAll(),
		registry.WithScanner(dlp.NewScanner(rules)),
		registry.WithArchiver(archive),
		registry.WithAuditLogger(auditLog),
		registry.WithNotifier(routing.AuditNotifier(auditLog)),
		registry.WithObservability(obs),
		registry.WithDialLimit(cfg.DialsPerMinute, cfg.DialBurst),
	)

	return smoke(ctx, eng, credentials, digester)
}

// smoke drives one scripted call end to end and prints the review package.
func smoke(ctx context.Context, eng *registry.Registry, credentials verification.CredentialStore, digester *verification.Digester) error {
	if err := credentials.Put(ctx, "agent_001", digester.Digest("correct horse battery staple")); err != nil {
		return err
	}

	sess, err := eng.HandleInboundCall(ctx, "+15551234567", "Jordan Example", "+15550000100")
	if err != nil {
		return err
	}
	slog.Info("call started", "call_id", sess.ID, "status", string(sess.Status), "agent", sess.AgentID)

	utterances := []struct {
		speaker contracts.Speaker
		text    string
	}{
		{contracts.SpeakerCaller, "Hi, I need help with my statement"},
		{contracts.SpeakerAgent, "Happy to help, can you describe the problem?"},
		{contracts.SpeakerCaller, "My SSN is 123-45-6789, does that help?"},
	}
	for _, u := range utterances {
		res, err := eng.ProcessUtterance(ctx, sess.ID, u.text, u.speaker)
		if err != nil {
			return err
		}
		if res.NeedsAdminVerification {
			vr, err := eng.VerifyAdminPassphrase(ctx, sess.ID, sess.AgentID, "correct horse battery staple")
			if err != nil {
				return err
			}
			slog.Info("admin verification", "verified", vr.Verified)
		}
	}

	for _, stage := range []contracts.Stage{
		contracts.StageInfoGathering,
		contracts.StageProblemSolving,
		contracts.StageActionPlan,
		contracts.StageCompletion,
	} {
		if _, err := eng.AdvanceWorkflow(ctx, sess.ID, stage); err != nil {
			return err
		}
	}

	report, err := eng.CompleteCall(ctx, sess.ID, contracts.CallSummary{IssueResolved: true})
	if err != nil {
		return err
	}
	slog.Info("call completed", "score", report.Metric.Score, "violations", report.DLP.ViolationsDetected)

	review, err := eng.GetForManagerReview(sess.ID)
	if err != nil {
		return err
	}
	slog.Info("review ready",
		"transcript_entries", len(review.Transcript),
		"workflow_completed", review.Workflow.WorkflowCompleted,
		"dlp_compliant", review.DLP.Compliant,
	)
	return nil
}
