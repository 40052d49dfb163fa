package domain

import "time"

// AuditStage names the pipeline step an audit event describes.
type AuditStage string

// Audit stages.
const (
	StageValidation AuditStage = "validation"
	StageRouting    AuditStage = "routing"
	StageRetrieval  AuditStage = "retrieval"
	StageAnswer     AuditStage = "answer"
	StageError      AuditStage = "error"
)

// AuditEvent is one structured record handed to the audit sink.
// The core emits one per routing decision and one per retrieval outcome.
type AuditEvent struct {
	QueryID    string         `json:"query_id"`
	Stage      AuditStage     `json:"stage"`
	Strategy   Strategy       `json:"strategy,omitempty"`
	Decision   string         `json:"decision,omitempty"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason,omitempty"`
	LatencyMS  int64          `json:"latency_ms"`
	Timestamp  time.Time      `json:"timestamp"`
	Fields     map[string]any `json:"fields,omitempty"`
}
