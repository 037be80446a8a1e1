package main

import (
	"fmt"
	"math/rand"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"socwatch/internal/client"
	"socwatch/internal/filter"
	"socwatch/internal/logger"
	"socwatch/internal/sparkline"
	"socwatch/internal/view"
	"socwatch/pkg/models"
)

func newAlertsCmd(opts *options) *cobra.Command {
	var (
		severity string
		status   string
		search   string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Print a filtered alerts table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(false)
			if err != nil {
				return err
			}
			api, err := newClient(cfg)
			if err != nil {
				return err
			}

			criteria := filter.Criteria{Query: search}
			if severity != "" {
				sev, ok := models.ParseSeverity(severity)
				if !ok {
					return errors.Newf("invalid severity %q", severity)
				}
				criteria.Severity = view.MapSeverity(string(sev))
			}
			if status != "" {
				criteria.Status = view.Status(strings.ToLower(status))
				if !slices.Contains(view.Statuses, criteria.Status) {
					return errors.Newf("invalid status %q", status)
				}
			}

			alerts, err := api.FetchAlertViews(cmd.Context(), client.AlertQuery{Limit: limit})
			if err != nil {
				return err
			}
			visible := filter.Apply(alerts, criteria)

			now := time.Now()
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("SEVERITY", "ALERT", "USER", "ASSET", "STATUS", "DETECTED").
				StyleFunc(func(row, col int) lipgloss.Style {
					s := lipgloss.NewStyle().Padding(0, 1)
					if row == table.HeaderRow {
						return s.Bold(true)
					}
					return s
				})
			for _, a := range visible {
				t.Row(strings.ToUpper(string(a.Severity)), a.Title, a.User, a.Asset, string(a.Status), view.FormatTimestamp(a.Timestamp, now))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d alerts\n", len(visible), len(alerts))
			return nil
		},
	}
	cmd.Flags().StringVar(&severity, "severity", "", "only this severity (low, medium, high, critical)")
	cmd.Flags().StringVar(&status, "status", "", "only this status (open, investigating, resolved)")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search over title, user, asset and description")
	cmd.Flags().IntVar(&limit, "limit", 100, "number of most recent alerts to fetch")
	return cmd
}

func newChatCmd(opts *options) *cobra.Command {
	var quick string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the SOC assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(false)
			if err != nil {
				return err
			}
			msg := strings.TrimSpace(strings.Join(args, " "))
			if msg == "" && quick == "" {
				return errors.New("give a message or --quick")
			}
			api, err := newClient(cfg)
			if err != nil {
				return err
			}
			resp, err := api.Chat(cmd.Context(), models.ChatRequest{Message: msg, QuickAction: quick})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
			return nil
		},
	}
	cmd.Flags().StringVar(&quick, "quick", "", fmt.Sprintf("quick action: %s, %s, %s or %s",
		models.QuickExplainLast, models.QuickThreatSummary, models.QuickRecommendActions, models.QuickSystemStatus))
	return cmd
}

func newHeartbeatCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Write the realtime component heartbeat as SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(false)
			if err != nil {
				return err
			}
			api, err := newClient(cfg)
			if err != nil {
				return err
			}

			components := view.FallbackComponents()
			rt, err := api.RealtimeMetrics(cmd.Context())
			if err != nil {
				logger.Warnf("Realtime metrics unavailable, using fallback components: %v", err)
				cmd.PrintErrln("backend unreachable, writing fallback heartbeat")
			} else {
				components = view.Components(rt.Components)
			}

			rows := make([]sparkline.Row, 0, len(components))
			for _, c := range components {
				rows = append(rows, sparkline.Row{Name: c.Name, Color: view.HealthColor(c.Health), History: c.History})
			}

			if err := writeHeartbeat(out, rows, rand.New(rand.NewSource(time.Now().UnixNano()))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d components)\n", out, len(rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "heartbeat.svg", "output file")
	return cmd
}

// writeHeartbeat writes the SVG to path. A failed close is reported as a
// failed write.
func writeHeartbeat(path string, rows []sparkline.Row, rnd *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := sparkline.WriteSVG(f, rows, rnd); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	return nil
}
