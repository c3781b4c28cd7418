package protocol

import "time"

// TicketSchemaVersion is the current ticket record schema.
// v1 unifies the earlier priority-only and impact-only shapes: business
// impact is required, priority is optional with a default.
const TicketSchemaVersion = 1

// DefaultPriority is assigned when the model logs a ticket without one.
const DefaultPriority = "Medium"

// Ticket is one logged report of tool or process friction. Tickets are
// immutable once written: there is no update or delete path.
type Ticket struct {
	ID               string `json:"id"`
	ToolName         string `json:"tool_name"`
	IssueDescription string `json:"issue_description"`
	BusinessImpact   string `json:"business_impact"`
	Priority         string `json:"priority"`
	// Channel and SessionID record where the report came in (web, telegram,
	// slack) for the admin view. Empty on records from older deployments.
	Channel   string `json:"channel,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	// Timestamp is assigned by the store at write time. Nil until the record
	// has been committed (or when the storeless driver is in use).
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
