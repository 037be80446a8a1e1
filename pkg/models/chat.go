package models

// Quick actions accepted by /chat.
const (
	QuickExplainLast      = "explain_last"
	QuickThreatSummary    = "threat_summary"
	QuickRecommendActions = "recommend_actions"
	QuickSystemStatus     = "system_status"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message     string `json:"message"`
	QuickAction string `json:"quick_action,omitempty"`
}

// ChatResponse is the reply of POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}
