package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"libmvt/artifacts"
	"libmvt/core"
	"libmvt/storage"
	"libmvt/threat/feeds"
)

// outputAsJSON writes data as indented JSON
func outputAsJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// detectionView is the JSON shape of one detection
type detectionView struct {
	Module    string `json:"module,omitempty"`
	Category  string `json:"category"`
	Indicator string `json:"indicator"`
	Observed  string `json:"observed"`
}

func detectionViews(module string, dets []core.Detection) []detectionView {
	views := make([]detectionView, 0, len(dets))
	for _, d := range dets {
		views = append(views, detectionView{
			Module:    module,
			Category:  d.Category.String(),
			Indicator: d.Indicator,
			Observed:  d.Observed,
		})
	}
	return views
}

// renderLoadResult summarizes which indicator files were read
func renderLoadResult(w io.Writer, result *feeds.LoadResult) {
	if result == nil {
		return
	}
	total := 0
	for _, f := range result.Files {
		total += f.Values
	}
	infoColor.Fprintf(w, "Loaded %d indicator values from %d files\n", total, len(result.Files))
	for _, warn := range result.Warnings {
		warningColor.Fprintf(w, "  ! %s\n", warn.Error())
	}
}

// renderModuleResults prints each module's record count and detections
func renderModuleResults(w io.Writer, results []*artifacts.Result) {
	if len(results) == 0 {
		warningColor.Fprintln(w, "No modules produced results")
		return
	}

	headerColor.Fprintln(w, "MODULES")
	headerColor.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-28s %-10s %-10s\n", "Module", "Records", "Detections")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	total := 0
	for _, res := range results {
		count := fmt.Sprintf("%d", len(res.Detections))
		if len(res.Detections) > 0 {
			count = errorColor.Sprint(count)
		}
		fmt.Fprintf(w, "%-28s %-10d %-10s\n", res.Module, len(res.Artifact.Results()), count)
		total += len(res.Detections)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))

	for _, res := range results {
		renderDetections(w, res.Module, res.Detections)
	}
	renderVerdict(w, total)
}

// renderDetections lists detections under a module heading
func renderDetections(w io.Writer, module string, dets []core.Detection) {
	if len(dets) == 0 {
		return
	}
	fmt.Fprintln(w)
	printSection(w, fmt.Sprintf("Detections in %s", module))
	for _, d := range dets {
		errorColor.Fprintf(w, "  [%s] ", d.Category)
		fmt.Fprintf(w, "%s matched %q\n", d.Indicator, d.Observed)
	}
}

func renderVerdict(w io.Writer, detections int) {
	fmt.Fprintln(w)
	if detections == 0 {
		successColor.Fprintln(w, "✓ No indicators of compromise found")
		return
	}
	errorColor.Fprintf(w, "✗ %d indicator matches found\n", detections)
}

// smsSummary is what check-backup reports
type smsSummary struct {
	RunID      string          `json:"run_id,omitempty"`
	Records    int             `json:"records"`
	Sent       int             `json:"sent"`
	Received   int             `json:"received"`
	Links      int             `json:"links"`
	Detections []detectionView `json:"detections"`
}

func summarizeSms(records []core.SmsRecord, dets []core.Detection) smsSummary {
	s := smsSummary{Records: len(records), Detections: detectionViews("sms", dets)}
	for _, rec := range records {
		switch rec.Direction() {
		case core.DirectionSent:
			s.Sent++
		case core.DirectionReceived:
			s.Received++
		}
		s.Links += len(rec.Links())
	}
	return s
}

func renderSmsSummary(w io.Writer, s smsSummary, dets []core.Detection) {
	headerColor.Fprintln(w, "═══════════════════════════════════════════════════════════════")
	headerColor.Fprintln(w, "  Backup Summary")
	headerColor.Fprintln(w, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	printSection(w, "Messages")
	printField(w, "Records", fmt.Sprintf("%d", s.Records))
	printField(w, "Sent", fmt.Sprintf("%d", s.Sent))
	printField(w, "Received", fmt.Sprintf("%d", s.Received))
	printField(w, "Links", fmt.Sprintf("%d", s.Links))
	if s.RunID != "" {
		printField(w, "Run ID", s.RunID)
	}

	renderDetections(w, "sms", dets)
	renderVerdict(w, len(dets))
}

// renderRunsTable lists stored runs, newest first
func renderRunsTable(w io.Writer, runs []*storage.Run) {
	if len(runs) == 0 {
		warningColor.Fprintln(w, "No stored runs")
		return
	}

	headerColor.Fprintln(w, "RUNS")
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%-38s %-10s %-20s %s\n", "ID", "Kind", "Created", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, run := range runs {
		fmt.Fprintf(w, "%-38s %-10s %-20s %s\n", run.ID, run.Kind, formatTime(run.CreatedAt), run.Source)
	}
	fmt.Fprintln(w, strings.Repeat("=", 100))
}

// renderRunDetails prints one run with its stored detections
func renderRunDetails(w io.Writer, run *storage.Run, dets []storage.StoredDetection) {
	printSection(w, "Run")
	printField(w, "ID", run.ID)
	printField(w, "Kind", string(run.Kind))
	printField(w, "Source", run.Source)
	printField(w, "Created", formatTime(run.CreatedAt))

	byModule := make(map[string][]core.Detection)
	var order []string
	for _, d := range dets {
		if _, ok := byModule[d.Module]; !ok {
			order = append(order, d.Module)
		}
		byModule[d.Module] = append(byModule[d.Module], d.Detection)
	}
	for _, module := range order {
		renderDetections(w, module, byModule[module])
	}
	renderVerdict(w, len(dets))
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-25s %s\n", key+":", value)
}

// formatTime formats a timestamp
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatTimeSince formats time as "X ago"
func formatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}

	duration := time.Since(t)
	if duration < time.Minute {
		return fmt.Sprintf("%ds ago", int(duration.Seconds()))
	}
	if duration < time.Hour {
		return fmt.Sprintf("%dm ago", int(duration.Minutes()))
	}
	if duration < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(duration.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(duration.Hours()/24))
}
