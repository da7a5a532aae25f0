package steps

import "time"

// EncodingSummary is the `encoding` fragment of a successful run's
// consolidated result JSON (§4.9 "Mapping to task states").
type EncodingSummary struct {
	Formats int `json:"formats"`
}

// ProcessingSummary is the `processing` fragment of a successful run's
// consolidated result JSON.
type ProcessingSummary struct {
	TotalWords  int `json:"totalWords"`
	TotalChunks int `json:"totalChunks"`
	TextLength  int `json:"textLength"`
}

// EnhancedSummary is the optional `enhanced` fragment, present only when
// enhancement produced at least one of chapters/keywords/summary.
type EnhancedSummary struct {
	Chapters int `json:"chapters"`
	Keywords int `json:"keywords"`
	HasSummary bool `json:"hasSummary"`
}

// RunResult is the consolidated result JSON a successful run writes to the
// task, per §4.9.
type RunResult struct {
	Success     bool              `json:"success"`
	EpisodeID   string            `json:"episodeId"`
	WorkflowID  string            `json:"workflowId"`
	CompletedAt time.Time         `json:"completedAt"`
	Encoding    EncodingSummary   `json:"encoding"`
	Processing  ProcessingSummary `json:"processing"`
	Enhanced    *EnhancedSummary  `json:"enhanced,omitempty"`
}

// FailureResult is the result JSON written to a task on any step failure,
// per §7 "User-visible failure behavior".
type FailureResult struct {
	Status        string    `json:"status"`
	Error         string    `json:"error"`
	Step          string    `json:"step"`
	Timestamp     time.Time `json:"timestamp"`
	OriginalError string    `json:"originalError"`
}
