package view

import (
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"

	"socwatch/pkg/models"
)

// ErrMalformedAlert marks a backend record that cannot be shown.
var ErrMalformedAlert = errors.New("malformed alert")

// DefaultConfidence is reported for every backend alert.
const DefaultConfidence = 95

// TraceStepInterval spaces synthetic trace offsets.
const TraceStepInterval = 150 * time.Millisecond

const maxRecommendedActions = 3

var traceActions = []string{
	"normalized detection signal",
	"classified threat type",
	"added behavioral context",
	"generated explanation",
}

const finalTraceAction = "made final priority decision"

// Transform converts a backend alert record into a view alert.
func Transform(a models.Alert) (Alert, error) {
	if strings.TrimSpace(a.AlertID) == "" {
		return Alert{}, errors.Wrap(ErrMalformedAlert, "missing alert_id")
	}

	out := Alert{
		ID:                 a.AlertID,
		Severity:           MapSeverity(a.Severity),
		Title:              Title(a.ThreatType),
		Description:        a.Explanation,
		Timestamp:          a.Timestamp,
		Status:             StatusOpen,
		Confidence:         DefaultConfidence,
		User:               a.User,
		Asset:              assetOf(a),
		RecommendedActions: RecommendedActions(a.Recommendation),
		Trace:              Trace(a.AgentTrace),
	}
	if ts, ok := ParseTimestamp(a.Timestamp); ok {
		out.DetectedAt = ts
	}
	return out, nil
}

// TransformAll converts every record or fails on the first malformed one.
func TransformAll(records []models.Alert) ([]Alert, error) {
	out := make([]Alert, 0, len(records))
	for i, rec := range records {
		a, err := Transform(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "alert %d", i)
		}
		out = append(out, a)
	}
	return out, nil
}

// MapSeverity maps a backend severity case-insensitively; unknown is medium.
func MapSeverity(s string) Severity {
	sev, ok := models.ParseSeverity(s)
	if !ok {
		return SeverityMedium
	}
	switch sev {
	case models.SeverityCritical:
		return SeverityCritical
	case models.SeverityHigh:
		return SeverityHigh
	case models.SeverityLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Title turns a threat slug like "BRUTE_FORCE" into "BRUTE FORCE" and
// "privilege_escalation" into "Privilege Escalation".
func Title(slug string) string {
	s := strings.ReplaceAll(slug, "_", " ")
	var b strings.Builder
	b.Grow(len(s))
	prevWord := false
	for _, r := range s {
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevWord = word
	}
	return b.String()
}

// RecommendedActions splits recommendation text into at most three actions.
func RecommendedActions(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '\n'
	})
	actions := make([]string, 0, maxRecommendedActions)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		actions = append(actions, p)
		if len(actions) == maxRecommendedActions {
			break
		}
	}
	return actions
}

// Trace pairs agent names with positional action labels.
func Trace(agents []string) []TraceStep {
	steps := make([]TraceStep, 0, len(agents))
	for i, agent := range agents {
		action := finalTraceAction
		if i < len(traceActions) {
			action = traceActions[i]
		}
		steps = append(steps, TraceStep{
			Agent:  agent,
			Action: action,
			Offset: time.Duration(i) * TraceStepInterval,
		})
	}
	return steps
}

func assetOf(a models.Alert) string {
	if len(a.RawEvents) > 0 {
		if s, ok := a.RawEvents[0]["asset"].(string); ok && s != "" {
			return s
		}
	}
	if s, ok := a.Metadata["asset"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// Components converts realtime backend components for rendering.
func Components(in []models.RealtimeComponent) []Component {
	out := make([]Component, 0, len(in))
	for _, c := range in {
		out = append(out, Component{
			ID:       c.ID,
			Name:     c.Name,
			Health:   ParseHealth(c.Status),
			Latency:  c.Latency,
			History:  append([]float64(nil), c.History...),
			Activity: c.Activity,
		})
	}
	return out
}
