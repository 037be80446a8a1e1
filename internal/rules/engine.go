package rules

import "socwatch/pkg/models"

// Engine applies detection rules to security logs.
type Engine interface {
	Apply(log models.SecurityLog) []models.RuleMatch
}

// NoopEngine matches nothing.
type NoopEngine struct{}

// Apply returns no matches.
func (n *NoopEngine) Apply(log models.SecurityLog) []models.RuleMatch {
	return nil
}
