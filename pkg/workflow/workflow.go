// Package workflow defines the fixed, forward-only stage machine a guided
// call moves through. Transitions may only step to the exact next stage;
// the completion stage is terminal.
package workflow

import (
	"errors"
	"fmt"

	"github.com/linedesk/callcore/pkg/contracts"
)

// ErrInvalidTransition is returned for any requested stage that is not
// exactly the next stage in the fixed order.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// stageOrder is the complete forward order of the call workflow.
var stageOrder = []contracts.Stage{
	contracts.StageInitial,
	contracts.StageInfoGathering,
	contracts.StageProblemSolving,
	contracts.StageActionPlan,
	contracts.StageCompletion,
}

var stageIndex = func() map[contracts.Stage]int {
	m := make(map[contracts.Stage]int, len(stageOrder))
	for i, s := range stageOrder {
		m[s] = i
	}
	return m
}()

// Stages returns the stage order, first to terminal.
func Stages() []contracts.Stage {
	out := make([]contracts.Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// IsKnown reports whether the stage exists in the workflow.
func IsKnown(stage contracts.Stage) bool {
	_, ok := stageIndex[stage]
	return ok
}

// IsTerminal reports whether the stage admits no further transition.
func IsTerminal(stage contracts.Stage) bool {
	return stage == contracts.StageCompletion
}

// Next returns the stage that follows the given one. The second return is
// false for the terminal stage and unknown stages.
func Next(stage contracts.Stage) (contracts.Stage, bool) {
	i, ok := stageIndex[stage]
	if !ok || i == len(stageOrder)-1 {
		return "", false
	}
	return stageOrder[i+1], true
}

// ValidateTransition checks that requested is exactly the next stage after
// current. Skips, backward moves, and self-loops are all rejected, as is
// any transition out of the terminal stage.
func ValidateTransition(current, requested contracts.Stage) error {
	if !IsKnown(requested) {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, requested)
	}
	if IsTerminal(current) {
		return fmt.Errorf("%w: %q is terminal", ErrInvalidTransition, current)
	}
	next, ok := Next(current)
	if !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, current)
	}
	if requested != next {
		return fmt.Errorf("%w: %q -> %q (next stage must be %q)", ErrInvalidTransition, current, requested, next)
	}
	return nil
}

// GuidanceFor returns the agent guidance for a stage. Unknown stages fall
// back to the initial stage guidance. The returned actions are the caller's
// copy; mutating them does not touch the guidance table.
func GuidanceFor(stage contracts.Stage) contracts.StageGuidance {
	g, ok := stageGuides[stage]
	if !ok {
		g = stageGuides[contracts.StageInitial]
	}
	g.RequiredActions = append([]string(nil), g.RequiredActions...)
	return g
}

var stageGuides = map[contracts.Stage]contracts.StageGuidance{
	contracts.StageInitial: {
		Stage:     contracts.StageInitial,
		Objective: "Establish connection and greet caller",
		RequiredActions: []string{
			"Greet with professional greeting",
			"Introduce yourself and company",
			"Ask how you can help",
			"Listen for caller purpose",
		},
		SuccessCriteria: "Caller has stated their purpose",
		AllowedNext:     contracts.StageInfoGathering,
	},
	contracts.StageInfoGathering: {
		Stage:     contracts.StageInfoGathering,
		Objective: "Collect necessary information",
		RequiredActions: []string{
			"Verify caller identity (if applicable)",
			"Ask about account/customer ID",
			"Understand the issue or request",
			"Document context and history",
			"Confirm understanding of the problem",
		},
		SuccessCriteria: "All necessary information captured",
		AllowedNext:     contracts.StageProblemSolving,
	},
	contracts.StageProblemSolving: {
		Stage:     contracts.StageProblemSolving,
		Objective: "Resolve the issue or provide solution",
		RequiredActions: []string{
			"Explain diagnostic process",
			"Walk through troubleshooting steps",
			"Try solutions in order of likelihood",
			"Verify each step with caller",
			"Document what was tried",
			"Escalate if needed",
		},
		SuccessCriteria: "Issue is resolved OR escalation initiated",
		AllowedNext:     contracts.StageActionPlan,
	},
	contracts.StageActionPlan: {
		Stage:     contracts.StageActionPlan,
		Objective: "Establish next steps and follow-up",
		RequiredActions: []string{
			"Summarize what was done",
			"Explain any next steps",
			"Provide follow-up timeline",
			"Offer additional help",
			"Get confirmation on action plan",
			"Provide reference number",
		},
		SuccessCriteria: "Caller agrees on action plan",
		AllowedNext:     contracts.StageCompletion,
	},
	contracts.StageCompletion: {
		Stage:     contracts.StageCompletion,
		Objective: "Professional call closing",
		RequiredActions: []string{
			"Thank caller for their time",
			"Reiterate key next steps",
			"Offer future contact option",
			"Professional goodbye",
			"Record call notes immediately",
		},
		SuccessCriteria: "Call ended professionally",
	},
}
