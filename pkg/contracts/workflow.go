package contracts

// Stage is one step of the fixed, forward-only call workflow.
type Stage string

const (
	StageInitial        Stage = "initial"
	StageInfoGathering  Stage = "information-gathering"
	StageProblemSolving Stage = "problem-solving"
	StageActionPlan     Stage = "action-plan"
	StageCompletion     Stage = "completion"
)

// StageGuidance tells the agent what the current stage is for and what must
// be true before the workflow may advance.
type StageGuidance struct {
	Stage           Stage    `json:"stage"`
	Objective       string   `json:"objective"`
	RequiredActions []string `json:"required_actions"`
	SuccessCriteria string   `json:"success_criteria"`
	AllowedNext     Stage    `json:"allowed_next,omitempty"` // empty for the terminal stage
}
