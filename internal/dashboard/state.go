package dashboard

import (
	"strings"

	"socwatch/internal/filter"
	"socwatch/internal/poller"
	"socwatch/internal/view"
	"socwatch/pkg/models"
)

// Page is a top level screen chosen from the sidebar.
type Page int

const (
	PageDashboard Page = iota
	PageAlerts
	PageAgents
)

// Pages lists the sidebar entries in order.
var Pages = []Page{PageDashboard, PageAlerts, PageAgents}

func (p Page) String() string {
	switch p {
	case PageDashboard:
		return "Dashboard"
	case PageAlerts:
		return "Alerts"
	case PageAgents:
		return "Agents"
	default:
		return "Unknown"
	}
}

// ChatRole tells who wrote a chat line.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "ai"
)

// ChatMessage is one line of the analyst chat.
type ChatMessage struct {
	Role    ChatRole
	Text    string
	Pending bool
	Seq     uint64
}

const (
	greeting        = "Watching the alert stream. Ask about the latest alert, a threat summary, recommended actions or system status."
	thinkingText    = "Thinking..."
	analyzingText   = "Analyzing..."
	chatErrorText   = "Sorry, I couldn't connect to the backend. Please check the API is running."
	actionErrorText = "Sorry, I couldn't process that action. Please check the backend."
)

// DashboardState backs the dashboard page.
type DashboardState struct {
	Components     []view.Component
	Summary        models.RealtimeSummary
	RealtimeSeen   bool
	RealtimeLoaded bool
	Live           bool

	Priority       []view.Alert
	PriorityLoaded bool
	PriorityErr    error

	Chat    []ChatMessage
	ChatSeq uint64
}

// AlertsState backs the alerts page. Overlay holds analyst status changes
// keyed by alert id; it outlives list refreshes and page switches.
type AlertsState struct {
	Items      []view.Alert
	Overlay    map[string]view.Status
	Criteria   filter.Criteria
	Cursor     int
	DrawerOpen bool
	Loaded     bool
	Err        error
}

// AgentsState backs the agents page.
type AgentsState struct {
	CPU []int
	Mem []int
}

// State is everything the UI renders.
type State struct {
	Page      Page
	Gen       uint64
	Dashboard DashboardState
	Alerts    AlertsState
	Agents    AgentsState
	Notice    string
}

// NewState returns the state before the first page is mounted.
func NewState() State {
	return State{
		Page: PageDashboard,
		Gen:  1,
		Dashboard: DashboardState{
			Chat: []ChatMessage{{Role: RoleAssistant, Text: greeting}},
		},
		Alerts: AlertsState{Overlay: map[string]view.Status{}},
	}
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

// NavigateMsg switches page.
type NavigateMsg struct{ Page Page }

// RealtimeMsg carries a realtime poller snapshot.
type RealtimeMsg struct {
	Gen      uint64
	Snapshot poller.Snapshot[*models.RealtimeMetrics]
}

// PriorityMsg carries a high-priority alerts poller snapshot.
type PriorityMsg struct {
	Gen      uint64
	Snapshot poller.Snapshot[[]view.Alert]
}

// AlertsMsg carries an alerts page poller snapshot.
type AlertsMsg struct {
	Gen      uint64
	Snapshot poller.Snapshot[[]view.Alert]
}

// MoveCursorMsg moves the alerts selection.
type MoveCursorMsg struct{ Delta int }

// ToggleDrawerMsg opens or closes the detail drawer.
type ToggleDrawerMsg struct{}

// CloseDrawerMsg closes the detail drawer.
type CloseDrawerMsg struct{}

// SearchMsg sets the search text.
type SearchMsg struct{ Query string }

// CycleSeverityMsg advances the severity filter.
type CycleSeverityMsg struct{}

// CycleStatusMsg advances the status filter.
type CycleStatusMsg struct{}

// AdvanceStatusMsg moves the selected alert to To.
type AdvanceStatusMsg struct{ To view.Status }

// RetryMsg refetches the current page now.
type RetryMsg struct{}

// SendChatMsg asks the assistant. QuickAction wins over Message.
type SendChatMsg struct {
	Message     string
	QuickAction string
}

// ChatReplyMsg answers the request numbered Seq.
type ChatReplyMsg struct {
	Seq   uint64
	Reply string
	Err   error
}

// GaugesMsg refreshes the decorative agent gauges.
type GaugesMsg struct {
	Gen uint64
	CPU []int
	Mem []int
}

func (NavigateMsg) isEvent()      {}
func (RealtimeMsg) isEvent()      {}
func (PriorityMsg) isEvent()      {}
func (AlertsMsg) isEvent()        {}
func (MoveCursorMsg) isEvent()    {}
func (ToggleDrawerMsg) isEvent()  {}
func (CloseDrawerMsg) isEvent()   {}
func (SearchMsg) isEvent()        {}
func (CycleSeverityMsg) isEvent() {}
func (CycleStatusMsg) isEvent()   {}
func (AdvanceStatusMsg) isEvent() {}
func (RetryMsg) isEvent()         {}
func (SendChatMsg) isEvent()      {}
func (ChatReplyMsg) isEvent()     {}
func (GaugesMsg) isEvent()        {}

// EffectKind names a side effect requested by Reduce.
type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectMount stops the pollers of the old page and starts Page's.
	EffectMount
	// EffectRefresh asks the mounted pollers for an immediate fetch.
	EffectRefresh
	// EffectChat sends ChatRequest; the answer comes back as ChatReplyMsg{Seq}.
	EffectChat
)

// Effect is work the model performs after a reduction.
type Effect struct {
	Kind    EffectKind
	Page    Page
	Gen     uint64
	Chat    models.ChatRequest
	ChatSeq uint64
}

// Reduce applies one event. It never performs I/O; anything that must
// happen outside the state is returned as an Effect.
func Reduce(s State, e Event) (State, Effect) {
	switch e := e.(type) {
	case NavigateMsg:
		return navigate(s, e.Page)

	case RealtimeMsg:
		if e.Gen != s.Gen || s.Page != PageDashboard {
			return s, Effect{}
		}
		d := &s.Dashboard
		d.RealtimeSeen = true
		if e.Snapshot.Err != nil || e.Snapshot.Data == nil {
			d.Live = false
			return s, Effect{}
		}
		d.Components = view.Components(e.Snapshot.Data.Components)
		d.Summary = e.Snapshot.Data.Summary
		d.RealtimeLoaded = true
		d.Live = true

	case PriorityMsg:
		if e.Gen != s.Gen || s.Page != PageDashboard {
			return s, Effect{}
		}
		d := &s.Dashboard
		d.PriorityLoaded = true
		d.PriorityErr = e.Snapshot.Err
		if e.Snapshot.Err == nil {
			d.Priority = filter.HighPriority(e.Snapshot.Data)
		}

	case AlertsMsg:
		if e.Gen != s.Gen || s.Page != PageAlerts {
			return s, Effect{}
		}
		a := &s.Alerts
		a.Loaded = true
		a.Err = e.Snapshot.Err
		if e.Snapshot.Err == nil {
			a.Items = withOverlay(e.Snapshot.Data, a.Overlay)
		}
		a.Cursor = clampCursor(a.Cursor, len(s.Visible()))
		if len(s.Visible()) == 0 {
			a.DrawerOpen = false
		}

	case MoveCursorMsg:
		n := len(s.Visible())
		s.Alerts.Cursor = clampCursor(s.Alerts.Cursor+e.Delta, n)

	case ToggleDrawerMsg:
		if _, ok := s.Selected(); ok {
			s.Alerts.DrawerOpen = !s.Alerts.DrawerOpen
		}

	case CloseDrawerMsg:
		s.Alerts.DrawerOpen = false

	case SearchMsg:
		s.Alerts.Criteria.Query = e.Query
		s = resetSelection(s)

	case CycleSeverityMsg:
		s.Alerts.Criteria.Severity = filter.NextSeverity(s.Alerts.Criteria.Severity)
		s = resetSelection(s)

	case CycleStatusMsg:
		s.Alerts.Criteria.Status = filter.NextStatus(s.Alerts.Criteria.Status)
		s = resetSelection(s)

	case AdvanceStatusMsg:
		return advance(s, e.To), Effect{}

	case RetryMsg:
		s.Notice = ""
		return s, Effect{Kind: EffectRefresh, Page: s.Page, Gen: s.Gen}

	case SendChatMsg:
		return sendChat(s, e)

	case ChatReplyMsg:
		return chatReply(s, e), Effect{}

	case GaugesMsg:
		if e.Gen != s.Gen || s.Page != PageAgents {
			return s, Effect{}
		}
		s.Agents.CPU = append([]int(nil), e.CPU...)
		s.Agents.Mem = append([]int(nil), e.Mem...)
	}
	return s, Effect{}
}

// Visible is the filtered alerts list.
func (s State) Visible() []view.Alert {
	return filter.Apply(s.Alerts.Items, s.Alerts.Criteria)
}

// Selected returns the alert under the cursor.
func (s State) Selected() (view.Alert, bool) {
	visible := s.Visible()
	if s.Alerts.Cursor < 0 || s.Alerts.Cursor >= len(visible) {
		return view.Alert{}, false
	}
	return visible[s.Alerts.Cursor], true
}

// ChatPending reports whether an answer is outstanding.
func (s State) ChatPending() bool {
	for _, m := range s.Dashboard.Chat {
		if m.Pending {
			return true
		}
	}
	return false
}

func navigate(s State, p Page) (State, Effect) {
	if p == s.Page {
		return s, Effect{}
	}
	s.Page = p
	s.Gen++
	s.Notice = ""

	switch p {
	case PageDashboard:
		chat := s.Dashboard.Chat
		seq := s.Dashboard.ChatSeq
		s.Dashboard = DashboardState{Chat: chat, ChatSeq: seq}
	case PageAlerts:
		s.Alerts = AlertsState{Overlay: s.Alerts.Overlay}
	case PageAgents:
		s.Agents = AgentsState{}
	}
	return s, Effect{Kind: EffectMount, Page: p, Gen: s.Gen}
}

func advance(s State, to view.Status) State {
	sel, ok := s.Selected()
	if !ok {
		return s
	}
	if !sel.Status.CanTransition(to) {
		s.Notice = "Alert " + sel.ID + " is " + string(sel.Status) + "; cannot mark " + string(to)
		return s
	}

	overlay := make(map[string]view.Status, len(s.Alerts.Overlay)+1)
	for id, st := range s.Alerts.Overlay {
		overlay[id] = st
	}
	overlay[sel.ID] = to
	s.Alerts.Overlay = overlay
	s.Alerts.Items = withOverlay(s.Alerts.Items, overlay)
	s.Alerts.Cursor = clampCursor(s.Alerts.Cursor, len(s.Visible()))
	s.Notice = ""
	return s
}

func sendChat(s State, e SendChatMsg) (State, Effect) {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.QuickAction == "" {
		return s, Effect{}
	}

	d := &s.Dashboard
	d.ChatSeq++
	chat := append([]ChatMessage(nil), d.Chat...)
	placeholder := analyzingText
	if e.QuickAction == "" {
		chat = append(chat, ChatMessage{Role: RoleUser, Text: msg})
		placeholder = thinkingText
	}
	chat = append(chat, ChatMessage{Role: RoleAssistant, Text: placeholder, Pending: true, Seq: d.ChatSeq})
	d.Chat = chat

	req := models.ChatRequest{Message: msg, QuickAction: e.QuickAction}
	return s, Effect{Kind: EffectChat, Chat: req, ChatSeq: d.ChatSeq}
}

func chatReply(s State, e ChatReplyMsg) State {
	chat := append([]ChatMessage(nil), s.Dashboard.Chat...)
	for i := range chat {
		m := &chat[i]
		if !m.Pending || m.Seq != e.Seq {
			continue
		}
		m.Pending = false
		switch {
		case e.Err == nil:
			m.Text = e.Reply
		case m.Text == analyzingText:
			m.Text = actionErrorText
		default:
			m.Text = chatErrorText
		}
		s.Dashboard.Chat = chat
		return s
	}
	return s
}

func withOverlay(alerts []view.Alert, overlay map[string]view.Status) []view.Alert {
	out := make([]view.Alert, len(alerts))
	copy(out, alerts)
	for i := range out {
		if st, ok := overlay[out[i].ID]; ok {
			out[i].Status = st
		}
	}
	return out
}

func resetSelection(s State) State {
	s.Alerts.Cursor = 0
	if len(s.Visible()) == 0 {
		s.Alerts.DrawerOpen = false
	}
	return s
}

func clampCursor(c, n int) int {
	if n == 0 || c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}
