package detection

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"socwatch/internal/transform/securitylog"
	"socwatch/pkg/models"
)

// DefaultSuspiciousLocations trigger SUSPICIOUS_LOGIN.
var DefaultSuspiciousLocations = []string{
	"Russia",
	"North Korea",
	"Unknown",
	"Tor Exit Node",
	"Romania",
	"Iran",
}

// RuleMatcher evaluates loaded rules against a log.
type RuleMatcher interface {
	Apply(log models.SecurityLog) []models.RuleMatch
}

// Config controls detection behavior.
type Config struct {
	BruteForceThreshold int
	BruteForceWindow    time.Duration
	FailedHistory       int
	EscalationHistory   int
	SuspiciousLocations []string
	Rules               RuleMatcher
}

// Engine turns security logs into detection signals.
type Engine struct {
	mu          sync.Mutex
	cfg         Config
	suspicious  map[string]struct{}
	failed      map[string][]models.SecurityLog
	escalations map[string][]models.SecurityLog
	now         func() time.Time
}

// NewEngine creates a detection engine.
func NewEngine(cfg Config) *Engine {
	if cfg.BruteForceThreshold <= 0 {
		cfg.BruteForceThreshold = 5
	}
	if cfg.BruteForceWindow <= 0 {
		cfg.BruteForceWindow = 2 * time.Minute
	}
	if cfg.FailedHistory <= 0 {
		cfg.FailedHistory = 20
	}
	if cfg.EscalationHistory <= 0 {
		cfg.EscalationHistory = 10
	}
	if len(cfg.SuspiciousLocations) == 0 {
		cfg.SuspiciousLocations = DefaultSuspiciousLocations
	}

	suspicious := make(map[string]struct{}, len(cfg.SuspiciousLocations))
	for _, loc := range cfg.SuspiciousLocations {
		suspicious[loc] = struct{}{}
	}

	return &Engine{
		cfg:         cfg,
		suspicious:  suspicious,
		failed:      make(map[string][]models.SecurityLog),
		escalations: make(map[string][]models.SecurityLog),
		now:         time.Now,
	}
}

// Analyze checks one log and returns a signal when a rule fires.
// Built-in detectors run first; loaded rules only produce a signal when
// none of them matched.
func (e *Engine) Analyze(log models.SecurityLog) *models.DetectionSignal {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch log.EventType {
	case models.EventFailedLogin:
		if sig := e.checkBruteForce(log); sig != nil {
			return sig
		}
	case models.EventSuccessfulLogin, models.EventNewCountryLogin:
		if sig := e.checkSuspiciousLogin(log); sig != nil {
			return sig
		}
	case models.EventPrivilegeEscalation:
		e.escalations[log.User] = appendBounded(e.escalations[log.User], log, e.cfg.EscalationHistory)
	case models.EventDataDownload:
		if sig := e.checkInsiderThreat(log); sig != nil {
			return sig
		}
	}

	return e.checkRules(log)
}

// Reset drops all per-user state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = make(map[string][]models.SecurityLog)
	e.escalations = make(map[string][]models.SecurityLog)
}

func (e *Engine) checkBruteForce(log models.SecurityLog) *models.DetectionSignal {
	e.failed[log.User] = appendBounded(e.failed[log.User], log, e.cfg.FailedHistory)

	ref, ok := securitylog.ParseTime(log.Timestamp)
	if !ok {
		ref = e.now()
	}
	cutoff := ref.Add(-e.cfg.BruteForceWindow)

	var recent []models.SecurityLog
	for _, l := range e.failed[log.User] {
		ts, ok := securitylog.ParseTime(l.Timestamp)
		if ok && ts.After(cutoff) {
			recent = append(recent, l)
		}
	}
	if len(recent) <= e.cfg.BruteForceThreshold {
		return nil
	}

	return e.newSignal(models.SignalBruteForce, log.User, models.SeverityHigh, recent, map[string]any{
		"failed_attempts": len(recent),
		"time_window":     windowLabel(e.cfg.BruteForceWindow),
		"ips":             uniqueIPs(recent),
	})
}

func (e *Engine) checkSuspiciousLogin(log models.SecurityLog) *models.DetectionSignal {
	if _, ok := e.suspicious[log.Location]; !ok {
		return nil
	}
	return e.newSignal(models.SignalSuspiciousLogin, log.User, models.SeverityHigh, []models.SecurityLog{log}, map[string]any{
		"location":    log.Location,
		"ip":          log.IP,
		"risk_reason": "Geographic anomaly",
	})
}

func (e *Engine) checkInsiderThreat(log models.SecurityLog) *models.DetectionSignal {
	escalations := e.escalations[log.User]
	if len(escalations) == 0 {
		return nil
	}
	events := make([]models.SecurityLog, 0, len(escalations)+1)
	events = append(events, escalations...)
	events = append(events, log)

	return e.newSignal(models.SignalInsiderThreat, log.User, models.SeverityCritical, events, map[string]any{
		"pattern":          "privilege_escalation → data_download",
		"asset":            log.Asset,
		"escalation_count": len(escalations),
	})
}

func (e *Engine) checkRules(log models.SecurityLog) *models.DetectionSignal {
	if e.cfg.Rules == nil {
		return nil
	}
	matches := e.cfg.Rules.Apply(log)
	if len(matches) == 0 {
		return nil
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if RuleSeverity(m.Severity).Rank() > RuleSeverity(best.Severity).Rank() {
			best = m
		}
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}

	return e.newSignal(models.SignalAnomalousAccess, log.User, RuleSeverity(best.Severity), []models.SecurityLog{log}, map[string]any{
		"rule_id":     best.ID,
		"rule_name":   best.Name,
		"tactic":      best.Tactic,
		"technique":   best.Technique,
		"asset":       log.Asset,
		"rule_names":  names,
		"match_count": len(matches),
	})
}

func (e *Engine) newSignal(typ models.SignalType, user string, sev models.Severity, events []models.SecurityLog, meta map[string]any) *models.DetectionSignal {
	return &models.DetectionSignal{
		SignalID:   uuid.NewString(),
		SignalType: typ,
		User:       user,
		Severity:   sev,
		Events:     events,
		DetectedAt: e.now().UTC().Format(time.RFC3339Nano),
		Metadata:   meta,
	}
}

// RuleSeverity maps a Sigma rule level to an alert severity.
func RuleSeverity(level string) models.Severity {
	if sev, ok := models.ParseSeverity(level); ok {
		return sev
	}
	return models.SeverityLow
}

func appendBounded(list []models.SecurityLog, log models.SecurityLog, max int) []models.SecurityLog {
	list = append(list, log)
	if len(list) > max {
		list = append([]models.SecurityLog(nil), list[len(list)-max:]...)
	}
	return list
}

func uniqueIPs(logs []models.SecurityLog) []string {
	seen := make(map[string]struct{}, len(logs))
	var ips []string
	for _, l := range logs {
		if l.IP == "" {
			continue
		}
		if _, ok := seen[l.IP]; ok {
			continue
		}
		seen[l.IP] = struct{}{}
		ips = append(ips, l.IP)
	}
	sort.Strings(ips)
	return ips
}

func windowLabel(d time.Duration) string {
	if d%time.Minute != 0 {
		return d.String()
	}
	if m := int(d / time.Minute); m != 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return "1 minute"
}
