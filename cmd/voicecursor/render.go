package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/stupiduntilnot/voicecursor/internal/agent"
	"github.com/stupiduntilnot/voicecursor/internal/audit"
	"github.com/stupiduntilnot/voicecursor/internal/observability"
	"github.com/stupiduntilnot/voicecursor/internal/pipeline"
)

const (
	colorPrimary = "#7C3AED"
	colorSuccess = "#10B981"
	colorWarning = "#F59E0B"
	colorError   = "#EF4444"
	colorGray    = "#6B7280"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorWarning))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray))

	codeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPrimary)).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func renderResult(w io.Writer, res pipeline.Result) {
	if !res.Success {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("✗ failed at %s stage", res.Stage)))
		fmt.Fprintln(w, "  "+res.Error)
		renderRunFooter(w, res.Metadata)
		return
	}

	if transcript, ok := res.Metadata["transcript"].(string); ok {
		fmt.Fprintln(w, titleStyle.Render("Request"))
		fmt.Fprintln(w, "  "+transcript)
	}
	if plan, ok := res.Metadata["plan"].(agent.Plan); ok {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Plan (%d steps)", plan.StepCount)))
		for i, step := range plan.Steps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
	}

	outcome, _ := res.Data.(agent.ValidationOutcome)
	artifact, _ := res.Metadata["code"].(agent.CodeArtifact)
	header := "Code"
	if artifact.SuggestedFilename != "" {
		header += " · " + artifact.SuggestedFilename
	}
	fmt.Fprintln(w, titleStyle.Render(header))
	fmt.Fprintln(w, codeBoxStyle.Render(outcome.Code))
	if outcome.Diff != "" {
		fmt.Fprintln(w, dimStyle.Render(outcome.Diff))
	}

	switch outcome.Status {
	case agent.StatusPendingApproval:
		fmt.Fprintln(w, warningStyle.Render("● pending approval"))
	case agent.StatusApplied:
		fmt.Fprintln(w, successStyle.Render("✓ applied to "+orDefault(outcome.FilePath, "(no file path)")))
	}
	renderRunFooter(w, res.Metadata)
}

func renderRunFooter(w io.Writer, meta map[string]any) {
	var parts []string
	for _, key := range []string{"run_id", "json_log"} {
		if v, ok := meta[key].(string); ok && v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	if len(parts) > 0 {
		fmt.Fprintln(w, dimStyle.Render(strings.Join(parts, "  ")))
	}
}

func renderLogList(w io.Writer, files []audit.LogFile) {
	t := newTable("#", "File", "Size", "Modified")
	for i, f := range files {
		t.Row(fmt.Sprint(i+1), f.Name, fmt.Sprintf("%d B", f.Size), f.ModTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w, t.String())
}

// renderLogSummary prints one row per agent call.
func renderLogSummary(w io.Writer, name string, records []audit.Record) {
	fmt.Fprintln(w, titleStyle.Render("Agent call summary · "+name))
	t := newTable("#", "Agent", "Status", "Time", "Input", "Error")
	n := 0
	for _, rec := range records {
		if rec.Agent == "" {
			continue
		}
		n++
		errMsg := ""
		if rec.Error != nil {
			errMsg = preview(*rec.Error, 50)
		}
		t.Row(fmt.Sprint(n), rec.Agent, statusMark(rec.Success), rec.Timestamp.Format("15:04:05"), preview(fmt.Sprint(rec.Input), 50), errMsg)
	}
	if n == 0 {
		fmt.Fprintln(w, warningStyle.Render("No agent calls found in log"))
		return
	}
	fmt.Fprintln(w, t.String())
}

// renderLogEntries prints every record with its input, output and metadata.
func renderLogEntries(w io.Writer, name string, records []audit.Record) {
	fmt.Fprintln(w, titleStyle.Render("JSON log · "+name))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Total entries: %d", len(records))))
	for i, rec := range records {
		if rec.Tool != "" {
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  tool %s %s", rec.Tool, statusMark(rec.Success))))
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("#%d %s %s", i+1, rec.Agent, statusMark(rec.Success))))
		fmt.Fprintln(w, dimStyle.Render("  "+rec.Timestamp.Format("2006-01-02 15:04:05.000")))
		if rec.Error != nil {
			fmt.Fprintln(w, errorStyle.Render("  error: "+*rec.Error))
		}
		fmt.Fprintln(w, "  input:  "+preview(indentJSON(rec.Input), 500))
		fmt.Fprintln(w, "  output: "+preview(indentJSON(rec.Output), 500))
		if len(rec.Metadata) > 0 {
			fmt.Fprintln(w, "  metadata: "+indentJSON(rec.Metadata))
		}
	}
}

func renderSummary(w io.Writer, s observability.Summary) {
	fmt.Fprintln(w, titleStyle.Render("Observability summary"))
	t := newTable("Metric", "Value")
	t.Row("Requests", fmt.Sprint(s.TotalRequests))
	t.Row("Successful", fmt.Sprint(s.SuccessfulRequests))
	t.Row("Failed", fmt.Sprint(s.FailedRequests))
	t.Row("Tokens", fmt.Sprint(s.TotalTokens))
	t.Row("Cost (USD)", fmt.Sprintf("$%.6f", s.TotalCostUSD))
	t.Row("Avg latency", fmt.Sprintf("%.2f ms", s.AvgLatencyMS))
	t.Row("Distinct agents", fmt.Sprint(s.TotalAgentsUsed))
	t.Row("Distinct tools", fmt.Sprint(s.TotalToolsUsed))
	fmt.Fprintln(w, t.String())
}

func renderRecords(w io.Writer, records []observability.Record) {
	if len(records) == 0 {
		return
	}
	t := newTable("ID", "Query", "Status", "Agents", "Tokens", "Cost", "Latency")
	for _, r := range records {
		t.Row(r.ID, preview(r.Query, 40), statusMark(r.Success), fmt.Sprint(len(r.Agents)),
			fmt.Sprint(r.TotalTokens), fmt.Sprintf("$%.6f", r.TotalCostUSD), fmt.Sprintf("%.0f ms", r.TotalLatencyMS))
	}
	fmt.Fprintln(w, t.String())
}

func statusMark(ok bool) string {
	if ok {
		return successStyle.Render("ok")
	}
	return errorStyle.Render("fail")
}

func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func indentJSON(v any) string {
	raw, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
