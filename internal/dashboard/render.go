package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"socwatch/internal/sparkline"
	"socwatch/internal/view"
)

const (
	defaultWidth    = 120
	sidebarWidth    = 16
	sparkWidth      = 10
	chatLines       = 8
	priorityRows    = 8
	confidenceWidth = 10
)

func (m *Model) View() string {
	w := m.width
	if w == 0 {
		w = defaultWidth
	}
	contentWidth := w - sidebarWidth - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var body string
	switch m.state.Page {
	case PageDashboard:
		body = m.dashboardView(contentWidth)
	case PageAlerts:
		body = m.alertsView(contentWidth)
	case PageAgents:
		body = m.agentsView(contentWidth)
	}

	main := lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body)
	if m.state.Notice != "" {
		main = lipgloss.JoinVertical(lipgloss.Left, main, noticeStyle.Render(m.state.Notice))
	}
	screen := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), " ", main)
	return lipgloss.JoinVertical(lipgloss.Left, screen, m.help.View(pageKeys{page: m.state.Page, k: keys}))
}

func (m *Model) sidebarView() string {
	lines := []string{titleStyle.Render("socwatch"), ""}
	for i, p := range Pages {
		label := fmt.Sprintf("%d %s", i+1, p)
		if p == m.state.Page {
			lines = append(lines, activeNavStyle.Render("▸ "+label))
			continue
		}
		lines = append(lines, navStyle.Render("  "+label))
	}
	return sidebarStyle.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m *Model) headerView() string {
	now := m.cfg.Now()
	title := titleStyle.Render(m.state.Page.String())
	status := colored("● Online", view.ColorGreen)
	return fmt.Sprintf("%s  %s  %s", title, status, dimStyle.Render(now.Format("1/2/2006 15:04:05")))
}

func (m *Model) dashboardView(width int) string {
	d := m.state.Dashboard
	half := width/2 - 2

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.heartbeatPanel(width),
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.priorityPanel(half),
			complianceView(half),
		),
	)
	return lipgloss.JoinVertical(lipgloss.Left, left, m.chatPanel(width, d))
}

func (m *Model) heartbeatPanel(width int) string {
	d := m.state.Dashboard
	indicator := colored("○ FALLBACK", view.ColorYellow)
	if d.Live {
		indicator = colored("● LIVE", view.ColorGreen)
	}
	head := titleStyle.Render("System Heartbeat") + "  " + indicator

	components := d.Components
	if !d.RealtimeLoaded {
		if !d.RealtimeSeen {
			return panelStyle.Width(width).Render(head + "\n" + m.spinner.View() + " Connecting to backend...")
		}
		components = view.FallbackComponents()
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("COMPONENT", "ACTIVITY", "TREND", "LATENCY", "HEALTH").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return dimStyle.Bold(true)
			}
			return textStyle
		})
	for _, c := range components {
		activity := "Uptime: 99.9%"
		if d.Live {
			activity = fmt.Sprintf("Activity: %d", c.Activity)
		}
		color := view.HealthColor(c.Health)
		t.Row(
			c.Name,
			activity,
			colored(sparkline.Blocks(c.History, sparkWidth), color),
			fmt.Sprintf("%dms", c.Latency),
			badge(strings.ToUpper(string(c.Health)), color),
		)
	}

	out := head + "\n" + t.Render()
	if d.Live {
		s := d.Summary
		out += "\n" + dimStyle.Render(fmt.Sprintf("logs %d  alerts %d  pending signals %d", s.TotalLogs, s.TotalAlerts, s.PendingSignals))
	}
	return panelStyle.Width(width).Render(out)
}

func (m *Model) priorityPanel(width int) string {
	d := m.state.Dashboard
	head := titleStyle.Render("Live High-Priority Alerts")

	var lines []string
	switch {
	case !d.PriorityLoaded:
		lines = append(lines, m.spinner.View()+" Loading alerts...")
	case len(d.Priority) == 0:
		lines = append(lines, dimStyle.Render("No high-priority alerts"))
	default:
		now := m.cfg.Now()
		for i, a := range d.Priority {
			if i == priorityRows {
				lines = append(lines, dimStyle.Render(fmt.Sprintf("+%d more", len(d.Priority)-priorityRows)))
				break
			}
			lines = append(lines, fmt.Sprintf("%s %s %s",
				badge(strings.ToUpper(string(a.Severity)), view.SeverityColor(a.Severity)),
				textStyle.Render(a.Title),
				dimStyle.Render(a.User+" · "+view.FormatTimestamp(a.Timestamp, now))))
		}
	}
	if d.PriorityErr != nil && d.PriorityLoaded {
		lines = append(lines, colored("feed unavailable, showing last data", view.ColorYellow))
	}
	return panelStyle.Width(width).Render(head + "\n" + strings.Join(lines, "\n"))
}

func complianceView(width int) string {
	lines := []string{titleStyle.Render("Compliance")}
	for _, c := range view.Compliance() {
		line := colored("●", view.ComplianceColor(c.State)) + " " + textStyle.Render(c.Name) + " " +
			dimStyle.Render(strings.ReplaceAll(string(c.State), "_", " "))
		if c.Detail != "" {
			line += dimStyle.Render(" (" + c.Detail + ")")
		}
		lines = append(lines, line)
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) chatPanel(width int, d DashboardState) string {
	msgs := d.Chat
	if len(msgs) > chatLines {
		msgs = msgs[len(msgs)-chatLines:]
	}

	lines := []string{titleStyle.Render("AI Analyst")}
	for _, msg := range msgs {
		switch {
		case msg.Role == RoleUser:
			lines = append(lines, lipgloss.NewStyle().Foreground(colorAccent).Render("you: ")+textStyle.Render(msg.Text))
		case msg.Pending:
			lines = append(lines, m.spinner.View()+" "+dimStyle.Render(msg.Text))
		default:
			lines = append(lines, textStyle.Width(width-4).Render("ai: "+msg.Text))
		}
	}
	lines = append(lines, m.chat.View())
	lines = append(lines, dimStyle.Render("[e] explain last  [t] threat summary  [a] actions  [y] system status"))
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) alertsView(width int) string {
	a := m.state.Alerts
	visible := m.state.Visible()

	var parts []string
	parts = append(parts, m.filterBar(len(visible), len(a.Items)))

	if a.Err != nil {
		parts = append(parts, bannerStyle.Width(width).Render(fmt.Sprintf("Failed to load alerts: %v (press r to retry)", a.Err)))
	}

	switch {
	case !a.Loaded:
		parts = append(parts, m.spinner.View()+" Loading alerts...")
	case len(visible) == 0:
		parts = append(parts, dimStyle.Render("No alerts match the current filters."))
	default:
		parts = append(parts, m.alertsTable(visible))
	}

	list := panelStyle.Width(width).Render(strings.Join(parts, "\n"))
	if !a.DrawerOpen {
		return list
	}
	sel, ok := m.state.Selected()
	if !ok {
		return list
	}
	return lipgloss.JoinVertical(lipgloss.Left, list, m.drawerView(sel, width))
}

func (m *Model) filterBar(shown, total int) string {
	c := m.state.Alerts.Criteria
	sev := "all"
	if c.Severity != "" {
		sev = string(c.Severity)
	}
	status := "all"
	if c.Status != "" {
		status = string(c.Status)
	}
	count := fmt.Sprintf("%d alerts", total)
	if c.Active() {
		count = fmt.Sprintf("%d of %d", shown, total)
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		m.search.View(),
		dimStyle.Render("severity: ")+textStyle.Render(sev),
		dimStyle.Render("status: ")+textStyle.Render(status),
		dimStyle.Render(count))
}

func (m *Model) alertsTable(alerts []view.Alert) string {
	now := m.cfg.Now()
	cursor := m.state.Alerts.Cursor

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("SEVERITY", "ALERT", "ASSET / USER", "CONFIDENCE", "STATUS", "DETECTED").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true).Foreground(colorDim)
			case row == cursor:
				return s.Background(colorSelect).Foreground(colorText)
			}
			return s.Foreground(colorText)
		})

	for _, a := range alerts {
		t.Row(
			colored(strings.ToUpper(string(a.Severity)), view.SeverityColor(a.Severity)),
			a.Title+"\n"+dimStyle.Render(a.ID),
			a.Asset+"\n"+dimStyle.Render(a.User),
			confidenceBar(a.Confidence, confidenceWidth),
			colored(string(a.Status), view.StatusColor(a.Status)),
			view.FormatTimestamp(a.Timestamp, now),
		)
	}
	return t.Render()
}

func (m *Model) drawerView(a view.Alert, width int) string {
	now := m.cfg.Now()
	lines := []string{
		badge(strings.ToUpper(string(a.Severity)), view.SeverityColor(a.Severity)) + " " + titleStyle.Render(a.Title),
		dimStyle.Render(a.ID),
		"",
		fmt.Sprintf("Status: %s   User: %s   Asset: %s", colored(string(a.Status), view.StatusColor(a.Status)), a.User, a.Asset),
		fmt.Sprintf("Detected: %s (%s)", detectedLabel(a), view.FormatTimestamp(a.Timestamp, now)),
		fmt.Sprintf("Confidence: %s", confidenceBar(a.Confidence, confidenceWidth)),
		"",
		titleStyle.Render("Summary"),
		textStyle.Width(width - 4).Render(a.Description),
		"",
		titleStyle.Render("Agent Trace"),
	}
	if len(a.Trace) == 0 {
		lines = append(lines, dimStyle.Render("No agent trace recorded for this alert."))
	}
	for _, step := range a.Trace {
		lines = append(lines, fmt.Sprintf("%s %s %s", dimStyle.Render(step.OffsetLabel()), textStyle.Render(step.Agent), dimStyle.Render(step.Action)))
	}

	lines = append(lines, "", titleStyle.Render("Recommended Actions"))
	if len(a.RecommendedActions) == 0 {
		lines = append(lines, dimStyle.Render("No recommended actions."))
	}
	for i, act := range a.RecommendedActions {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, act))
	}

	var hint []string
	if a.Status.CanTransition(view.StatusInvestigating) {
		hint = append(hint, "[o] take ownership")
	}
	if a.Status.CanTransition(view.StatusResolved) {
		hint = append(hint, "[x] resolve")
	}
	hint = append(hint, "[esc] close")
	lines = append(lines, "", dimStyle.Render(strings.Join(hint, "  ")))

	return panelStyle.BorderForeground(colorAccent).Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) agentsView(width int) string {
	agents := view.Agents()

	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, panelStyle.Render(a.Name))
	}
	strip := lipgloss.JoinHorizontal(lipgloss.Center, joinArrows(names)...)

	cpu, mem := m.state.Agents.CPU, m.state.Agents.Mem
	cards := make([]string, 0, len(agents))
	for i, a := range agents {
		state := colored("● active", view.ColorGreen)
		if !a.Active {
			state = colored("○ idle", view.ColorGray)
		}
		lines := []string{
			titleStyle.Render(a.Name) + "  " + state,
			dimStyle.Render(a.Role),
			textStyle.Width(width - 4).Render(a.Description),
		}
		for _, d := range a.Decisions {
			lines = append(lines, "  • "+d)
		}
		lines = append(lines, dimStyle.Render("> "+a.ExampleOutput))
		if i < len(cpu) && i < len(mem) {
			lines = append(lines, fmt.Sprintf("CPU %s  MEM %s", gauge(cpu[i], 10), gauge(mem[i], 10)))
		}
		cards = append(cards, panelStyle.Width(width).Render(strings.Join(lines, "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render("Agent Pipeline"), strip}, cards...)...)
}

func joinArrows(items []string) []string {
	out := make([]string, 0, len(items)*2)
	for i, it := range items {
		if i > 0 {
			out = append(out, dimStyle.Render(" → "))
		}
		out = append(out, it)
	}
	return out
}

func detectedLabel(a view.Alert) string {
	if a.DetectedAt.IsZero() {
		return a.Timestamp
	}
	return a.DetectedAt.Local().Format(time.DateTime)
}

// confidenceBar renders pct as a fixed width bar followed by the value.
func confidenceBar(pct, width int) string {
	pct = clampPct(pct)
	return bar(pct, width) + fmt.Sprintf(" %d%%", pct)
}

func gauge(pct, width int) string {
	pct = clampPct(pct)
	return bar(pct, width) + fmt.Sprintf(" %2d%%", pct)
}

func clampPct(pct int) int {
	return max(0, min(pct, 100))
}

func bar(pct, width int) string {
	filled := pct * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
