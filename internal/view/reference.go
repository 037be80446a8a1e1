package view

// Agent is a pipeline agent shown on the agents page.
type Agent struct {
	ID            string
	Name          string
	Role          string
	Description   string
	Decisions     []string
	ExampleOutput string
	Active        bool
}

// ComplianceState is the standing of a compliance framework.
type ComplianceState string

const (
	Compliant      ComplianceState = "compliant"
	ReviewNeeded   ComplianceState = "review_needed"
	ActionRequired ComplianceState = "action_required"
)

// ComplianceItem is one row of the compliance panel.
type ComplianceItem struct {
	Name   string
	State  ComplianceState
	Detail string
}

var agents = []Agent{
	{
		ID:            "agt-1",
		Name:          "Ingestion Analyst",
		Role:          "Data Normalization & Parsing",
		Description:   "Continuously monitors raw logs from 500+ sources. Identifies formats, parses fields, and filters noise before data hits the SIEM.",
		Decisions:     []string{"Discarded 45% of logs as noise", "Normalized timestamps to UTC", "Tagged PII data fields"},
		ExampleOutput: "Detected unknown log format from firewall-03. Auto-generated regex parser pattern #421. Integrity verified.",
		Active:        true,
	},
	{
		ID:            "agt-2",
		Name:          "Threat Analyst",
		Role:          "Signature & Behavior Matching",
		Description:   "Scans normalized events against 50,000+ threat signatures and behavioral baselines. Maps events to MITRE ATT&CK framework.",
		Decisions:     []string{"Matched IOC: 192.168.1.5", "Identified T1110 (Brute Force)", "Flagged impossible travel login"},
		ExampleOutput: "High confidence match for CVE-2023-44487 in web-server traffic. Correlated with threat feed Intel-42.",
		Active:        true,
	},
	{
		ID:            "agt-3",
		Name:          "Context Enrichment",
		Role:          "Asset & Identity Correlation",
		Description:   "Enriches alerts with user data (LDAP), asset criticality (CMDB), and past incident history to calculate true risk scores.",
		Decisions:     []string{"Retrieved User Role: DevOps Admin", "Asset Criticality: High (PCI Scope)", "Added GeoIP: Moscow, RU"},
		ExampleOutput: `User "admin" has never logged in from IP region "South America". escalating risk score +30.`,
		Active:        true,
	},
	{
		ID:            "agt-4",
		Name:          "Explanation Agent",
		Role:          "Natural Language Summarization",
		Description:   "Synthesizes complex technical data into human-readable narratives for analysts and executives.",
		Decisions:     []string{"Generated executive summary", "Simplified technical jargon", "Created timeline view"},
		ExampleOutput: "This alert represents a likely credential theft followed by an attempt to dump database tables. Immediate action recommended.",
		Active:        true,
	},
	{
		ID:            "agt-5",
		Name:          "SOC Manager",
		Role:          "Orchestration & Response",
		Description:   "Oversees the entire pipeline. Prioritizes alerts based on resource availability and business impact. Suggests playbooks.",
		Decisions:     []string{"Assigned to Analyst: Sarah", "Triggered Playbook: P_Isolate_Host", "Escalated to P1"},
		ExampleOutput: "Orchestrating response for Critical Incident #992. Waiting for human approval to isolate host.",
		Active:        true,
	},
}

var compliance = []ComplianceItem{
	{Name: "SOC 2 Type II", State: Compliant},
	{Name: "ISO 27001", State: Compliant},
	{Name: "GDPR", State: ReviewNeeded, Detail: "due in 5 days"},
	{Name: "HIPAA", State: ActionRequired, Detail: "Audit failed"},
	{Name: "PCI DSS", State: Compliant},
}

// Agents returns a copy of the pipeline agent roster.
func Agents() []Agent {
	out := make([]Agent, len(agents))
	for i, a := range agents {
		a.Decisions = append([]string(nil), a.Decisions...)
		out[i] = a
	}
	return out
}

// Compliance returns a copy of the compliance items.
func Compliance() []ComplianceItem {
	return append([]ComplianceItem(nil), compliance...)
}

// FallbackComponents is shown when the realtime feed has never loaded.
func FallbackComponents() []Component {
	return []Component{
		{ID: "1", Name: "Log Collector", Health: HealthHealthy, Latency: 45, History: []float64{40, 42, 45, 44, 46, 45, 43, 45, 44, 45}},
		{ID: "2", Name: "Threat Intelligence", Health: HealthHealthy, Latency: 120, History: []float64{110, 115, 120, 118, 122, 120, 119, 120, 121, 120}},
		{ID: "3", Name: "SIEM Engine", Health: HealthHealthy, Latency: 85, History: []float64{80, 82, 85, 84, 86, 85, 83, 85, 84, 85}},
		{ID: "4", Name: "Alert Pipeline", Health: HealthDegraded, Latency: 245, History: []float64{150, 180, 210, 230, 245, 250, 245, 240, 245, 248}},
		{ID: "5", Name: "Analytics Engine", Health: HealthHealthy, Latency: 310, History: []float64{300, 305, 310, 308, 312, 310, 309, 310, 311, 310}},
		{ID: "6", Name: "Database", Health: HealthHealthy, Latency: 12, History: []float64{10, 11, 12, 11, 13, 12, 11, 12, 12, 12}},
	}
}
