package dashboard

import (
	"context"
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"socwatch/internal/client"
	"socwatch/internal/logger"
	"socwatch/internal/poller"
	"socwatch/internal/view"
	"socwatch/pkg/models"
)

// API is the part of the SOC client the dashboard needs.
type API interface {
	FetchAlertViews(ctx context.Context, q client.AlertQuery) ([]view.Alert, error)
	RealtimeMetrics(ctx context.Context) (*models.RealtimeMetrics, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Config configures the dashboard.
type Config struct {
	API              API
	AlertsInterval   time.Duration
	RealtimeInterval time.Duration
	PriorityInterval time.Duration
	GaugeInterval    time.Duration
	AlertsLimit      int
	PriorityLimit    int
	ChatTimeout      time.Duration
	Rand             *rand.Rand
	Now              func() time.Time
}

type focus int

const (
	focusNone focus = iota
	focusSearch
	focusChat
)

type controller interface {
	Refresh()
	Stop()
}

// pollMsg wraps a poller snapshot event with the command that waits for
// the next one.
type pollMsg struct {
	event Event
	next  tea.Cmd
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	cfg   Config
	ctx   context.Context
	state State

	pollers []controller

	help    help.Model
	spinner spinner.Model
	search  textinput.Model
	chat    textinput.Model
	focus   focus

	width  int
	height int
}

// New creates the dashboard model. ctx bounds every poller and request.
func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.API == nil {
		return nil, errors.New("dashboard api is nil")
	}
	if cfg.AlertsInterval <= 0 {
		cfg.AlertsInterval = 10 * time.Second
	}
	if cfg.RealtimeInterval <= 0 {
		cfg.RealtimeInterval = 2 * time.Second
	}
	if cfg.PriorityInterval <= 0 {
		cfg.PriorityInterval = 5 * time.Second
	}
	if cfg.GaugeInterval <= 0 {
		cfg.GaugeInterval = 2 * time.Second
	}
	if cfg.AlertsLimit <= 0 {
		cfg.AlertsLimit = 100
	}
	if cfg.PriorityLimit <= 0 {
		cfg.PriorityLimit = 50
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 30 * time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(colorTitle)

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search title, user, asset"
	search.CharLimit = 80

	chat := textinput.New()
	chat.Prompt = "> "
	chat.Placeholder = "Ask the analyst..."
	chat.CharLimit = 500

	return &Model{
		cfg:     cfg,
		ctx:     ctx,
		state:   NewState(),
		help:    help.New(),
		spinner: sp,
		search:  search,
		chat:    chat,
	}, nil
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, cfg Config) error {
	m, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.unmount()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run dashboard")
	}
	return nil
}

// State returns the current UI state.
func (m *Model) State() State {
	return m.state
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.mount(m.state.Page, m.state.Gen))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pollMsg:
		gen := m.state.Gen
		cmd := m.dispatch(msg.event)
		if eventGen(msg.event) != gen {
			return m, cmd
		}
		return m, tea.Batch(cmd, msg.next)

	case gaugeTickMsg:
		if msg.gen != m.state.Gen || m.state.Page != PageAgents {
			return m, nil
		}
		return m, tea.Batch(m.dispatch(m.gaugeValues(msg.gen)), m.gaugeTick(msg.gen))

	case Event:
		return m, m.dispatch(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) dispatch(e Event) tea.Cmd {
	var eff Effect
	m.state, eff = Reduce(m.state, e)
	return m.perform(eff)
}

func (m *Model) perform(eff Effect) tea.Cmd {
	switch eff.Kind {
	case EffectMount:
		m.search.Reset()
		m.search.Blur()
		m.chat.Blur()
		m.focus = focusNone
		return m.mount(eff.Page, eff.Gen)
	case EffectRefresh:
		for _, p := range m.pollers {
			p.Refresh()
		}
	case EffectChat:
		return m.sendChat(eff.ChatSeq, eff.Chat)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	switch m.focus {
	case focusSearch:
		switch msg.String() {
		case "enter", "esc":
			m.search.Blur()
			m.focus = focusNone
			return nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return tea.Batch(cmd, m.dispatch(SearchMsg{Query: m.search.Value()}))

	case focusChat:
		switch msg.String() {
		case "esc":
			m.chat.Blur()
			m.focus = focusNone
			return nil
		case "enter":
			text := m.chat.Value()
			m.chat.Reset()
			return m.dispatch(SendChatMsg{Message: text})
		}
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	case key.Matches(msg, keys.NextPage):
		return m.dispatch(NavigateMsg{Page: Pages[(int(m.state.Page)+1)%len(Pages)]})
	case key.Matches(msg, keys.PrevPage):
		return m.dispatch(NavigateMsg{Page: Pages[(int(m.state.Page)+len(Pages)-1)%len(Pages)]})
	case key.Matches(msg, keys.Page1):
		return m.dispatch(NavigateMsg{Page: PageDashboard})
	case key.Matches(msg, keys.Page2):
		return m.dispatch(NavigateMsg{Page: PageAlerts})
	case key.Matches(msg, keys.Page3):
		return m.dispatch(NavigateMsg{Page: PageAgents})
	case key.Matches(msg, keys.Retry):
		return m.dispatch(RetryMsg{})
	}

	switch m.state.Page {
	case PageDashboard:
		return m.dashboardKey(msg)
	case PageAlerts:
		return m.alertsKey(msg)
	}
	return nil
}

func (m *Model) dashboardKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Chat):
		m.focus = focusChat
		return m.chat.Focus()
	case key.Matches(msg, keys.Explain):
		return m.dispatch(SendChatMsg{QuickAction: models.QuickExplainLast})
	case key.Matches(msg, keys.Summary):
		return m.dispatch(SendChatMsg{QuickAction: models.QuickThreatSummary})
	case key.Matches(msg, keys.Recommend):
		return m.dispatch(SendChatMsg{QuickAction: models.QuickRecommendActions})
	case key.Matches(msg, keys.SysStatus):
		return m.dispatch(SendChatMsg{QuickAction: models.QuickSystemStatus})
	}
	return nil
}

func (m *Model) alertsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		return m.dispatch(MoveCursorMsg{Delta: -1})
	case key.Matches(msg, keys.Down):
		return m.dispatch(MoveCursorMsg{Delta: 1})
	case key.Matches(msg, keys.Enter):
		return m.dispatch(ToggleDrawerMsg{})
	case key.Matches(msg, keys.Back):
		return m.dispatch(CloseDrawerMsg{})
	case key.Matches(msg, keys.Search):
		m.focus = focusSearch
		return m.search.Focus()
	case key.Matches(msg, keys.Sev):
		return m.dispatch(CycleSeverityMsg{})
	case key.Matches(msg, keys.Status):
		return m.dispatch(CycleStatusMsg{})
	case key.Matches(msg, keys.Own):
		return m.dispatch(AdvanceStatusMsg{To: view.StatusInvestigating})
	case key.Matches(msg, keys.Resolve):
		return m.dispatch(AdvanceStatusMsg{To: view.StatusResolved})
	}
	return nil
}

// mount stops the running pollers and starts those of page.
func (m *Model) mount(page Page, gen uint64) tea.Cmd {
	m.unmount()

	api := m.cfg.API
	switch page {
	case PageDashboard:
		realtime := watch(m, m.cfg.RealtimeInterval, api.RealtimeMetrics,
			func(s poller.Snapshot[*models.RealtimeMetrics]) Event { return RealtimeMsg{Gen: gen, Snapshot: s} })
		limit := m.cfg.PriorityLimit
		priority := watch(m, m.cfg.PriorityInterval,
			func(ctx context.Context) ([]view.Alert, error) {
				return api.FetchAlertViews(ctx, client.AlertQuery{Limit: limit})
			},
			func(s poller.Snapshot[[]view.Alert]) Event { return PriorityMsg{Gen: gen, Snapshot: s} })
		return tea.Batch(realtime, priority)

	case PageAlerts:
		limit := m.cfg.AlertsLimit
		return watch(m, m.cfg.AlertsInterval,
			func(ctx context.Context) ([]view.Alert, error) {
				return api.FetchAlertViews(ctx, client.AlertQuery{Limit: limit})
			},
			func(s poller.Snapshot[[]view.Alert]) Event { return AlertsMsg{Gen: gen, Snapshot: s} })

	case PageAgents:
		return m.gauges(gen)
	}
	return nil
}

func (m *Model) unmount() {
	for _, p := range m.pollers {
		p.Stop()
	}
	m.pollers = nil
}

func watch[T any](m *Model, interval time.Duration, fetch poller.FetchFunc[T], wrap func(poller.Snapshot[T]) Event) tea.Cmd {
	p, err := poller.New(poller.Config{Interval: interval, Now: m.cfg.Now}, fetch)
	if err != nil {
		logger.Errorf("dashboard poller: %v", err)
		return nil
	}
	ch, err := p.Start(m.ctx)
	if err != nil {
		logger.Errorf("dashboard poller: %v", err)
		return nil
	}
	m.pollers = append(m.pollers, p)
	return listen(ch, wrap)
}

func listen[T any](ch <-chan poller.Snapshot[T], wrap func(poller.Snapshot[T]) Event) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		if snap.Err != nil {
			logger.Warnf("dashboard fetch failed: %v", snap.Err)
		}
		return pollMsg{event: wrap(snap), next: listen(ch, wrap)}
	}
}

type gaugeTickMsg struct{ gen uint64 }

func (m *Model) gaugeTick(gen uint64) tea.Cmd {
	return tea.Tick(m.cfg.GaugeInterval, func(time.Time) tea.Msg {
		return gaugeTickMsg{gen: gen}
	})
}

// gauges fills the gauges at once and schedules the next refresh. Values
// are drawn on the update loop so the random source is never shared.
func (m *Model) gauges(gen uint64) tea.Cmd {
	m.state, _ = Reduce(m.state, m.gaugeValues(gen))
	return m.gaugeTick(gen)
}

func (m *Model) gaugeValues(gen uint64) GaugesMsg {
	n := len(view.Agents())
	msg := GaugesMsg{Gen: gen, CPU: make([]int, n), Mem: make([]int, n)}
	for i := 0; i < n; i++ {
		msg.CPU[i] = 10 + m.cfg.Rand.Intn(60)
		msg.Mem[i] = 20 + m.cfg.Rand.Intn(50)
	}
	return msg
}

func (m *Model) sendChat(seq uint64, req models.ChatRequest) tea.Cmd {
	api, ctx, timeout := m.cfg.API, m.ctx, m.cfg.ChatTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		resp, err := api.Chat(ctx, req)
		if err != nil {
			logger.Warnf("chat request failed: %v", err)
			return ChatReplyMsg{Seq: seq, Err: err}
		}
		return ChatReplyMsg{Seq: seq, Reply: resp.Response}
	}
}

func eventGen(e Event) uint64 {
	switch e := e.(type) {
	case RealtimeMsg:
		return e.Gen
	case PriorityMsg:
		return e.Gen
	case AlertsMsg:
		return e.Gen
	}
	return 0
}
