// Package assistant answers analyst questions from the current alert set
// with templated security analysis.
package assistant

import (
	"fmt"
	"sort"
	"strings"

	"socwatch/internal/view"
	"socwatch/pkg/models"
)

// RecentWindow is how many of the newest alerts feed pattern analysis.
const RecentWindow = 10

// Stats counts alerts by severity.
type Stats struct {
	Total    int
	Critical int
	High     int
	Medium   int
	Low      int
}

// Context is the alert data a reply is built from.
type Context struct {
	Last   *view.Alert
	Recent []view.Alert
	Stats  Stats
}

// BuildContext summarises alert records, oldest first. Malformed records
// are skipped.
func BuildContext(alerts []models.Alert) *Context {
	c := &Context{}
	for _, a := range alerts {
		v, err := view.Transform(a)
		if err != nil {
			continue
		}
		c.Stats.Total++
		switch v.Severity {
		case view.SeverityCritical:
			c.Stats.Critical++
		case view.SeverityHigh:
			c.Stats.High++
		case view.SeverityMedium:
			c.Stats.Medium++
		case view.SeverityLow:
			c.Stats.Low++
		}
		c.Recent = append(c.Recent, v)
	}
	if len(c.Recent) > RecentWindow {
		c.Recent = c.Recent[len(c.Recent)-RecentWindow:]
	}
	if n := len(c.Recent); n > 0 {
		last := c.Recent[n-1]
		c.Last = &last
	}
	return c
}

// Respond routes a free-text question by keyword.
func Respond(message string, c *Context) string {
	if c == nil {
		return "I don't have enough context to answer that. Please ensure the system has alert data."
	}

	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "last", "recent", "latest", "newest"):
		return generate(models.QuickExplainLast, c)
	case containsAny(msg, "summary", "overview", "situation"):
		return generate(models.QuickThreatSummary, c)
	case containsAny(msg, "do", "action", "recommend", "fix", "handle"):
		return generate(models.QuickRecommendActions, c)
	case containsAny(msg, "status", "health", "operational"):
		return generate(models.QuickSystemStatus, c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I'm analyzing your security environment. Currently tracking %d alerts.\n\n", c.Stats.Total)
	if c.Last != nil {
		fmt.Fprintf(&b, "Latest: %s affecting %s.\n\n", c.Last.Title, c.Last.User)
	}
	b.WriteString("Ask me about specific alerts, threat summaries, or recommended actions!")
	return b.String()
}

// QuickAction answers one of the predefined quick actions.
func QuickAction(action string, c *Context) string {
	if c == nil {
		return "No alert data available for analysis."
	}
	return generate(action, c)
}

// Reply answers a chat request: a quick action wins over the message.
func Reply(req models.ChatRequest, c *Context) string {
	if req.QuickAction != "" {
		return QuickAction(req.QuickAction, c)
	}
	return Respond(req.Message, c)
}

func generate(action string, c *Context) string {
	switch action {
	case models.QuickExplainLast:
		return explainLast(c)
	case models.QuickThreatSummary:
		return threatSummary(c)
	case models.QuickRecommendActions:
		return recommendActions(c)
	case models.QuickSystemStatus:
		return systemStatus(c)
	}
	return "I can help you with security analysis. Try asking about alerts, threats, or system status."
}

func explainLast(c *Context) string {
	if c.Last == nil {
		return "No recent alerts found in the system."
	}
	a := c.Last

	var b strings.Builder
	b.WriteString("## 🔍 Latest Alert Analysis\n\n")
	fmt.Fprintf(&b, "**Threat Type:** %s (%s severity)\n\n", a.Title, strings.ToUpper(string(a.Severity)))
	b.WriteString("**Affected Systems:**\n")
	fmt.Fprintf(&b, "- User: `%s`\n", a.User)
	fmt.Fprintf(&b, "- Asset: `%s`\n\n", a.Asset)

	title := strings.ToUpper(a.Title)
	var analysis string
	var actions []string
	switch {
	case strings.Contains(title, "INSIDER"):
		analysis = "This is an insider threat pattern. The user's behavior deviates from their normal baseline, potentially indicating compromised credentials or malicious intent."
		actions = []string{
			"Verify the user's identity through out-of-band communication",
			"Review recent access logs and privilege changes",
			"Consider temporarily suspending the account pending investigation",
		}
	case strings.Contains(title, "BRUTE FORCE"):
		analysis = "Multiple failed authentication attempts detected, indicating a credential stuffing or brute force attack."
		actions = []string{
			"Block the source IP address immediately",
			"Reset the targeted user's password",
			"Enable multi-factor authentication if not already active",
		}
	case strings.Contains(title, "SUSPICIOUS LOGIN"):
		analysis = "Login from an unusual location or at an unusual time. Could indicate account compromise or lateral movement."
		actions = []string{
			"Contact the user to verify the login attempt",
			"Review concurrent sessions for this account",
			"Check for data exfiltration attempts",
		}
	default:
		analysis = truncate(a.Description, 300)
		actions = []string{
			"Investigate the affected user and asset",
			"Review recent logs for related activity",
			"Consider isolating the asset if threat is confirmed",
		}
	}

	fmt.Fprintf(&b, "**Analysis:** %s\n\n", analysis)
	b.WriteString("**Recommended Actions:**\n")
	for i, act := range actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, act)
	}
	return b.String()
}

func threatSummary(c *Context) string {
	s := c.Stats

	var b strings.Builder
	b.WriteString("## 📊 Current Threat Landscape\n\n")
	b.WriteString("**Alert Summary:**\n")
	fmt.Fprintf(&b, "- Total: %d alerts\n", s.Total)
	fmt.Fprintf(&b, "- Critical: %d 🔴\n", s.Critical)
	fmt.Fprintf(&b, "- High: %d 🟠\n", s.High)
	fmt.Fprintf(&b, "- Medium: %d 🟡\n", s.Medium)
	fmt.Fprintf(&b, "- Low: %d 🟢\n\n", s.Low)

	if s.Critical > 0 {
		fmt.Fprintf(&b, "**⚠️ High Risk:** %d critical alert(s) require immediate attention.\n\n", s.Critical)
	}

	if len(c.Recent) > 0 {
		threat, n := mostCommon(c.Recent, func(a view.Alert) string { return a.Title })
		fmt.Fprintf(&b, "**Trending Threat:** %s (%d occurrences)\n\n", threat, n)

		user, n := mostCommon(c.Recent, func(a view.Alert) string { return a.User })
		if n > 1 {
			fmt.Fprintf(&b, "**Most Affected User:** %s (%d alerts)\n\n", user, n)
		}
	}

	b.WriteString("**Status:** Active monitoring continues. Review high-priority alerts first.")
	return b.String()
}

func recommendActions(c *Context) string {
	s := c.Stats

	var b strings.Builder
	b.WriteString("## 🎯 Recommended Priority Actions\n\n")

	if s.Critical > 0 {
		fmt.Fprintf(&b, "**1. Address Critical Alerts (%d)**\n", s.Critical)
		b.WriteString("   - Investigate and triage all critical severity alerts\n")
		b.WriteString("   - Escalate to senior analyst if needed\n")
		b.WriteString("   - Document response actions\n\n")
	}
	if s.High > 0 {
		fmt.Fprintf(&b, "**2. Review High Priority Alerts (%d)**\n", s.High)
		b.WriteString("   - Assess for potential lateral movement\n")
		b.WriteString("   - Correlate with threat intelligence feeds\n")
		b.WriteString("   - Update detection rules if new patterns emerge\n\n")
	}
	if len(c.Recent) > 5 {
		b.WriteString("**3. Pattern Analysis**\n")
		fmt.Fprintf(&b, "   - %d recent alerts detected\n", len(c.Recent))
		b.WriteString("   - Look for common indicators across alerts\n")
		b.WriteString("   - Consider automated response playbooks\n\n")
	}

	b.WriteString("**4. Proactive Measures**\n")
	b.WriteString("   - Update security baselines\n")
	b.WriteString("   - Review user access privileges\n")
	b.WriteString("   - Schedule security awareness training")
	return b.String()
}

func systemStatus(c *Context) string {
	s := c.Stats

	status, color := "✅ **NORMAL OPERATIONS**", "🟢"
	switch {
	case s.Critical > 0:
		status, color = "⚠️ **ELEVATED RISK**", "🔴"
	case s.Total > 50:
		status, color = "⚡ **HIGH ACTIVITY**", "🟡"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s System Security Status\n\n", color)
	fmt.Fprintf(&b, "%s\n\n", status)
	b.WriteString("**Current Metrics:**\n")
	fmt.Fprintf(&b, "- Active Alerts: %d\n", s.Total)
	fmt.Fprintf(&b, "- Critical Issues: %d\n", s.Critical)
	b.WriteString("- Detection Coverage: Active\n")
	b.WriteString("- Agent Processing: Operational\n\n")

	if s.Critical > 0 {
		fmt.Fprintf(&b, "**Action Required:** %d critical alert(s) need immediate investigation.\n", s.Critical)
	} else {
		b.WriteString("**Status:** All systems operating within normal parameters.\n")
	}
	return b.String()
}

// mostCommon returns the most frequent key; ties go to the key seen first.
func mostCommon(alerts []view.Alert, key func(view.Alert) string) (string, int) {
	counts := map[string]int{}
	var order []string
	for _, a := range alerts {
		k := key(a)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return order[0], counts[order[0]]
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
