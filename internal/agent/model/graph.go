package model

import (
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/results"
	"github.com/adam-setup/server/internal/sandbox"
)

// Intent categories produced by the classifier.
const (
	IntentTargetingCheck = "targeting_check"
	IntentBudgetCheck    = "budget_check"
	IntentQualityCheck   = "quality_check"
	IntentOtherCheck     = "other_check"
	IntentDSPSupport     = "dsp_support"
	IntentAnomalyDetRun  = "anomaly_det_run"
)

// KnownIntents lists every category the classifier may emit.
var KnownIntents = []string{
	IntentTargetingCheck, IntentBudgetCheck, IntentQualityCheck,
	IntentOtherCheck, IntentDSPSupport, IntentAnomalyDetRun,
}

// IsKnownIntent reports whether the category is one the router handles.
func IsKnownIntent(category string) bool {
	for _, k := range KnownIntents {
		if k == category {
			return true
		}
	}
	return false
}

// IntentResult is the structured classifier output. A reply that does
// not parse into this shape is treated as a clarification question to
// relay verbatim.
type IntentResult struct {
	IntentCategory string `json:"intent_category"`
	IntentSummary  string `json:"intent_summary"`
}

// ConversationState stores per-invocation state for the Eino graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
type ConversationState struct {
	ConversationID string
	User           string
	Partner        string
	UseMemory      bool

	// Messages is the user-visible transcript for this turn, ending
	// with the assistant reply. InternalMessages traces agent-to-agent
	// content that never reaches the user.
	Messages         []*schema.Message
	InternalMessages []*schema.Message
	History          []*schema.Message
	LongTermMemory   string
	UserLanguage     string

	// Classification.
	IntentCategory string
	IntentSummary  string
	IntentCleared  bool

	// Analysis loop.
	InstructionBlock string
	InAnalysis       bool
	Briefing         string
	BriefingReady    bool

	// Detection and support routing.
	RunDetection      bool
	RunSupport        bool
	DetectionComplete bool

	// Code generation and execution.
	Code           string
	PreviousCode   string
	ExecutionError string
	RetryCount     int
	MaxRetries     int
	DataMissing    bool

	// Results.
	ExecResult    *sandbox.Result
	Processed     *results.Processed
	ResultSummary string
	DownloadLinks []results.Link

	// Session caches.
	AdvertiserNames []string
	SchemaBlock     string
}

// LastAssistantMessage returns the newest assistant message in the
// visible transcript, or nil when the turn produced none.
func (s *ConversationState) LastAssistantMessage() *schema.Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i] != nil && s.Messages[i].Role == schema.Assistant {
			return s.Messages[i]
		}
	}
	return nil
}

// TurnInput is the public input for one conversational turn.
type TurnInput struct {
	User      string `json:"user"`
	Partner   string `json:"partner"`
	Query     string `json:"query"`
	UseMemory bool   `json:"use_memory"`
}

// TurnOutput is the public result of one conversational turn.
type TurnOutput struct {
	Response       string         `json:"response"`
	ConversationID string         `json:"conversation_id"`
	DownloadLinks  []results.Link `json:"download_links,omitempty"`
	TotalCostUSD   float64        `json:"total_cost_usd"`
}
