package entities

import "time"

// Audit actions.
const (
	ActionImport      = "import"
	ActionMerge       = "merge"
	ActionQueryApply  = "query.apply"
	ActionSyncApplied = "sync.apply"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	Subject   string         `json:"subject,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
