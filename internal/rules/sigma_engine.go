package rules

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"
	"github.com/cockroachdb/errors"

	"socwatch/internal/logger"
	"socwatch/pkg/models"
)

// Logsource values a rule may declare to apply to socwatch logs.
const (
	LogsourceProduct = "socwatch"
	LogsourceService = "auth"
)

var techniqueTag = regexp.MustCompile(`^t\d{4}(?:\.\d{3})?$`)

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

type skipReason int

const (
	keep skipReason = iota
	skipInvalid
	skipDatasource
	skipComplex
)

func (s *SigmaLoadStats) count(r skipReason) {
	switch r {
	case keep:
		s.Loaded++
	case skipInvalid:
		s.SkippedInvalid++
	case skipDatasource:
		s.SkippedDatasource++
	case skipComplex:
		s.SkippedComplex++
	}
}

type loadedRule struct {
	eval  *sigmaevaluator.RuleEvaluator
	match models.RuleMatch
}

// SigmaEngine evaluates single-event Sigma rules against security logs.
type SigmaEngine struct {
	rules []loadedRule
	ctx   context.Context
}

// NewSigmaEngine loads rules from a .yml/.yaml file or a directory tree.
// Rules for another logsource, with timeframes, aggregations or keyword
// searches, and unparsable files are skipped and counted in stats.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalFiles = len(files)

	engine := &SigmaEngine{ctx: context.Background()}
	for _, file := range files {
		rule, reason := loadRule(file)
		stats.count(reason)
		if reason != keep {
			continue
		}
		engine.rules = append(engine.rules, loadedRule{
			eval:  sigmaevaluator.ForRule(rule),
			match: matchFromRule(rule),
		})
	}
	return engine, stats, nil
}

// ruleFiles resolves path to a sorted list of rule files.
func ruleFiles(path string) ([]string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve rule path")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "stat rule path")
	}

	if !info.IsDir() {
		if !isYAMLFile(root) {
			return nil, errors.Newf("rule file must end with .yml or .yaml: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && isYAMLFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk rule directory")
	}
	sort.Strings(files)
	return files, nil
}

func loadRule(file string) (sigma.Rule, skipReason) {
	raw, err := os.ReadFile(file)
	if err != nil {
		logger.Debugf("Skip rule %s: %v", file, err)
		return sigma.Rule{}, skipInvalid
	}
	rule, err := sigma.ParseRule(raw)
	if err != nil {
		logger.Debugf("Skip rule %s: %v", file, err)
		return sigma.Rule{}, skipInvalid
	}
	if !appliesToSocwatch(rule.Logsource) {
		logger.Debugf("Skip rule %s: logsource %s/%s", file, rule.Logsource.Product, rule.Logsource.Service)
		return rule, skipDatasource
	}
	if why := unsupported(rule.Detection); why != "" {
		logger.Debugf("Skip rule %s: %s", file, why)
		return rule, skipComplex
	}
	return rule, keep
}

// Apply returns the rules the log matches, nil when none do.
func (e *SigmaEngine) Apply(log models.SecurityLog) []models.RuleMatch {
	if e == nil {
		return nil
	}

	event := log.AsMap()
	var out []models.RuleMatch
	for _, r := range e.rules {
		res, err := r.eval.Matches(e.ctx, event)
		if err == nil && res.Match {
			out = append(out, r.match)
		}
	}
	return out
}

// Len returns the number of loaded rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

func isYAMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// appliesToSocwatch accepts an empty logsource or one naming socwatch auth
// logs.
func appliesToSocwatch(ls sigma.Logsource) bool {
	product := strings.ToLower(strings.TrimSpace(ls.Product))
	service := strings.ToLower(strings.TrimSpace(ls.Service))
	return (product == "" || product == LogsourceProduct) &&
		(service == "" || service == LogsourceService)
}

// unsupported explains why a detection cannot be evaluated one log at a
// time, or returns "".
func unsupported(d sigma.Detection) string {
	if d.Timeframe > 0 {
		return "timeframe"
	}
	for _, cond := range d.Conditions {
		if cond.Aggregation != nil {
			return "aggregation"
		}
		if !plainExpr(cond.Search) {
			return "condition expression"
		}
	}
	for name, search := range d.Searches {
		if len(search.Keywords) > 0 {
			return "keywords in " + name
		}
		if len(search.EventMatchers) == 0 {
			return "empty search " + name
		}
	}
	return ""
}

// plainExpr reports whether expr only combines named searches with
// and/or/not.
func plainExpr(expr sigma.SearchExpr) bool {
	all := func(children []sigma.SearchExpr) bool {
		for _, c := range children {
			if !plainExpr(c) {
				return false
			}
		}
		return true
	}
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.And:
		return all(e)
	case sigma.Or:
		return all(e)
	case sigma.Not:
		return plainExpr(e.Expr)
	}
	return false
}

func matchFromRule(rule sigma.Rule) models.RuleMatch {
	m := models.RuleMatch{
		ID:       strings.TrimSpace(rule.ID),
		Name:     strings.TrimSpace(rule.Title),
		Severity: strings.ToLower(strings.TrimSpace(rule.Level)),
	}
	if m.ID == "" {
		m.ID = m.Name
	}
	if m.Severity == "" {
		m.Severity = "medium"
	}
	m.Tactic, m.Technique = attackTags(rule.Tags)
	return m
}

// attackTags picks the first ATT&CK tactic (attack.initial_access →
// initial-access) and technique (attack.t1078.001 → T1078/001).
func attackTags(tags []string) (tactic, technique string) {
	for _, raw := range tags {
		name, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(raw)), "attack.")
		if !ok {
			continue
		}
		if techniqueTag.MatchString(name) {
			if technique == "" {
				technique = strings.ToUpper(strings.ReplaceAll(name, ".", "/"))
			}
			continue
		}
		if tactic == "" && !strings.HasPrefix(name, "t") {
			tactic = strings.ReplaceAll(name, "_", "-")
		}
	}
	return tactic, technique
}
