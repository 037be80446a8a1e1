package triage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"socwatch/pkg/models"
)

// Agent names in pipeline order.
const (
	AgentOrchestrator = "Orchestrator Agent"
	AgentAlertHandler = "Alert Handler Agent"
	AgentThreat       = "Threat Analyzer Agent"
	AgentRootCause    = "Root Cause Agent"
	AgentCompliance   = "Compliance Agent"
	AgentResponse     = "Response Automation Agent"
)

// AgentTrace lists every agent in the order they run.
var AgentTrace = []string{
	AgentOrchestrator,
	AgentAlertHandler,
	AgentThreat,
	AgentRootCause,
	AgentCompliance,
	AgentResponse,
}

// Technique is a MITRE ATT&CK mapping.
type Technique struct {
	ID     string
	Name   string
	Tactic string
}

var techniques = map[models.SignalType]Technique{
	models.SignalBruteForce:      {ID: "T1110", Name: "Brute Force", Tactic: "Credential Access"},
	models.SignalSuspiciousLogin: {ID: "T1078", Name: "Valid Accounts", Tactic: "Initial Access"},
	models.SignalInsiderThreat:   {ID: "T1068", Name: "Exploitation for Privilege Escalation", Tactic: "Privilege Escalation, Exfiltration"},
	models.SignalAnomalousAccess: {ID: "T1078", Name: "Valid Accounts", Tactic: "Defense Evasion"},
}

var recommendations = map[models.SignalType]string{
	models.SignalBruteForce: "Lock the targeted account and force a password reset. " +
		"Block the source IPs at the perimeter firewall. " +
		"Enable MFA for the account and review authentication logs for a successful login.",
	models.SignalSuspiciousLogin: "Verify the login with the user through a trusted channel. " +
		"Terminate active sessions and rotate credentials if the login is not recognised. " +
		"Add the location to conditional access review.",
	models.SignalInsiderThreat: "Suspend the account's elevated privileges immediately. " +
		"Preserve access logs and the downloaded data trail for investigation. " +
		"Notify HR and legal before contacting the user.",
	models.SignalAnomalousAccess: "Review the matched rule evidence with the asset owner. " +
		"Confirm the access is authorised or revoke it. " +
		"Tune the rule if the behaviour is expected.",
}

const defaultRecommendation = "Review immediately and verify user identity"

var sensitiveAssets = map[string][]string{
	"customer-db":      {"GDPR", "SOC 2"},
	"employee-records": {"GDPR", "HIPAA"},
	"payment-gateway":  {"PCI DSS", "SOC 2"},
}

// Result is the outcome of a triage run.
type Result struct {
	Explanation    string
	Recommendation string
	AgentTrace     []string
	Success        bool
	Technique      Technique
	Reportable     bool
	Frameworks     []string
}

// Case is the shared context the agents work on.
type Case struct {
	Signal     *models.DetectionSignal
	Now        time.Time
	Technique  Technique
	Assets     []string
	IPs        []string
	Locations  []string
	Reportable bool
	Frameworks []string
	Sections   []string
}

// Step is one agent in the pipeline.
type Step struct {
	Agent string
	Run   func(c *Case) (string, error)
}

// Pipeline runs agents sequentially over a signal.
type Pipeline struct {
	steps []Step
	now   func() time.Time
}

// NewPipeline creates the six-agent triage pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		steps: []Step{
			{Agent: AgentOrchestrator, Run: orchestrate},
			{Agent: AgentAlertHandler, Run: handleAlert},
			{Agent: AgentThreat, Run: analyzeThreat},
			{Agent: AgentRootCause, Run: rootCause},
			{Agent: AgentCompliance, Run: checkCompliance},
			{Agent: AgentResponse, Run: planResponse},
		},
		now: time.Now,
	}
}

// Run analyzes the signal. A failing agent does not abort the run: the
// result falls back to a rule-based explanation with Success false.
func (p *Pipeline) Run(sig *models.DetectionSignal) (*Result, error) {
	if sig == nil {
		return nil, errors.New("nil signal")
	}

	c := &Case{Signal: sig, Now: p.now()}
	res := &Result{
		AgentTrace:     append([]string(nil), AgentTrace...),
		Recommendation: Recommendation(sig.SignalType),
		Success:        true,
	}

	for _, step := range p.steps {
		section, err := step.Run(c)
		if err != nil {
			res.Success = false
			res.Explanation = fmt.Sprintf("Alert generated by detection rule: %s (%s: %v)", sig.SignalType, step.Agent, err)
			res.Technique = c.Technique
			return res, nil
		}
		c.Sections = append(c.Sections, fmt.Sprintf("[%s] %s", step.Agent, section))
	}

	res.Explanation = strings.Join(c.Sections, "\n")
	res.Technique = c.Technique
	res.Reportable = c.Reportable
	res.Frameworks = c.Frameworks
	return res, nil
}

// Recommendation returns the response text for a signal type.
func Recommendation(t models.SignalType) string {
	if r, ok := recommendations[t]; ok {
		return r
	}
	return defaultRecommendation
}

// TechniqueFor returns the ATT&CK mapping of a signal type.
func TechniqueFor(t models.SignalType) (Technique, bool) {
	tech, ok := techniques[t]
	return tech, ok
}

func orchestrate(c *Case) (string, error) {
	sig := c.Signal
	return fmt.Sprintf("%s signal for %s at %s severity; engaging triage, threat, forensic, compliance and response agents.",
		sig.SignalType, sig.User, sig.Severity), nil
}

func handleAlert(c *Case) (string, error) {
	sig := c.Signal
	if len(sig.Events) == 0 {
		return "", errors.New("signal carries no events")
	}
	c.Assets = distinct(sig.Events, func(l models.SecurityLog) string { return l.Asset })
	c.IPs = distinct(sig.Events, func(l models.SecurityLog) string { return l.IP })
	c.Locations = distinct(sig.Events, func(l models.SecurityLog) string { return l.Location })

	return fmt.Sprintf("Correlated %d event(s) for %s. Assets: %s. Source IPs: %s. Locations: %s.",
		len(sig.Events), sig.User, list(c.Assets), list(c.IPs), list(c.Locations)), nil
}

func analyzeThreat(c *Case) (string, error) {
	sig := c.Signal
	tech, ok := techniques[sig.SignalType]
	if !ok {
		return "", errors.Newf("no ATT&CK mapping for %s", sig.SignalType)
	}
	if id, _ := sig.Metadata["technique"].(string); id != "" {
		tech.ID = id
		tech.Name = "Rule mapped technique"
	}
	if tactic, _ := sig.Metadata["tactic"].(string); tactic != "" {
		tech.Tactic = tactic
	}
	c.Technique = tech

	var intent string
	switch sig.SignalType {
	case models.SignalBruteForce:
		intent = fmt.Sprintf("Repeated authentication failures (%v attempts in %v) indicate password guessing.",
			sig.Metadata["failed_attempts"], sig.Metadata["time_window"])
	case models.SignalSuspiciousLogin:
		intent = fmt.Sprintf("Login from %v is a geographic anomaly consistent with stolen credentials.", sig.Metadata["location"])
	case models.SignalInsiderThreat:
		intent = "Privilege escalation followed by data download matches a staged exfiltration pattern."
	default:
		intent = fmt.Sprintf("Log matched detection rule %v.", sig.Metadata["rule_name"])
	}
	return fmt.Sprintf("%s %s (%s), tactic %s.", intent, tech.ID, tech.Name, tech.Tactic), nil
}

func rootCause(c *Case) (string, error) {
	sig := c.Signal
	first, last := sig.Events[0].Timestamp, sig.Events[len(sig.Events)-1].Timestamp

	var cause string
	switch sig.SignalType {
	case models.SignalBruteForce:
		cause = "Exposed login endpoint without lockout"
	case models.SignalSuspiciousLogin:
		cause = "Likely compromised credential"
	case models.SignalInsiderThreat:
		cause = "Excessive privilege grant"
	default:
		cause = "Policy deviation"
	}
	return fmt.Sprintf("%s. Timeline %s to %s. Blast radius: %s.", cause, first, last, list(c.Assets)), nil
}

func checkCompliance(c *Case) (string, error) {
	seen := make(map[string]struct{})
	for _, asset := range c.Assets {
		for _, fw := range sensitiveAssets[asset] {
			if _, ok := seen[fw]; ok {
				continue
			}
			seen[fw] = struct{}{}
			c.Frameworks = append(c.Frameworks, fw)
		}
	}
	sort.Strings(c.Frameworks)

	if len(c.Frameworks) == 0 {
		return "No regulated data involved; not a reportable incident.", nil
	}
	c.Reportable = true
	deadline := c.Now.Add(72 * time.Hour).UTC().Format(time.RFC3339)
	return fmt.Sprintf("Regulated data in scope (%s). Reportable incident, notification deadline %s.",
		strings.Join(c.Frameworks, ", "), deadline), nil
}

func planResponse(c *Case) (string, error) {
	sig := c.Signal
	priority := "P3"
	switch sig.Severity {
	case models.SeverityCritical:
		priority = "P1"
	case models.SeverityHigh:
		priority = "P2"
	}
	return fmt.Sprintf("Priority %s. Immediate containment: %s", priority, firstSentence(Recommendation(sig.SignalType))), nil
}

func distinct(events []models.SecurityLog, field func(models.SecurityLog) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range events {
		v := field(e)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func list(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
