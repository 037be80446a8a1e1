package view

// Color names understood by the renderers.
const (
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorYellow = "yellow"
	ColorBlue   = "blue"
	ColorGreen  = "green"
	ColorGray   = "gray"
)

// SeverityColor maps a severity to its badge color.
func SeverityColor(s Severity) string {
	switch s {
	case SeverityCritical:
		return ColorRed
	case SeverityHigh:
		return ColorOrange
	case SeverityMedium:
		return ColorYellow
	case SeverityLow:
		return ColorBlue
	default:
		return ColorGray
	}
}

// StatusColor follows the alerts table: open reads as down, investigating
// as degraded and resolved as healthy.
func StatusColor(s Status) string {
	switch s {
	case StatusOpen:
		return HealthColor(HealthDown)
	case StatusInvestigating:
		return HealthColor(HealthDegraded)
	case StatusResolved:
		return HealthColor(HealthHealthy)
	default:
		return ColorGray
	}
}

// HealthColor maps component health to a color.
func HealthColor(h Health) string {
	switch h {
	case HealthHealthy:
		return ColorGreen
	case HealthDegraded:
		return ColorYellow
	case HealthDown:
		return ColorRed
	default:
		return ColorGray
	}
}

// ComplianceColor maps a compliance state to a color.
func ComplianceColor(c ComplianceState) string {
	switch c {
	case Compliant:
		return ColorGreen
	case ReviewNeeded:
		return ColorYellow
	case ActionRequired:
		return ColorRed
	default:
		return ColorGray
	}
}
