package artifacts

import (
	"strings"

	"libmvt/core"
)

// =============================================================================
// Daily Stats
// =============================================================================

const dailyPrefix = "  Daily from "

// DumpsysBatteryDaily parses the package updates recorded in the daily
// stats of `dumpsys batterystats`
type DumpsysBatteryDaily struct {
	records
}

var _ Artifact = (*DumpsysBatteryDaily)(nil)

func NewDumpsysBatteryDaily() *DumpsysBatteryDaily {
	return &DumpsysBatteryDaily{}
}

func (d *DumpsysBatteryDaily) Name() string {
	return "dumpsys_battery_daily"
}

func (d *DumpsysBatteryDaily) Parse(input string) error {
	d.reset()

	var from, to string
	inDaily := false
	// updates repeat within a day; keep the first of each package/version
	seen := map[string]bool{}

	for _, line := range splitLines(input) {
		if strings.HasPrefix(line, dailyPrefix) {
			timeframe := strings.TrimSuffix(strings.TrimSpace(line[len(dailyPrefix):]), ":")
			f, t, ok := strings.Cut(timeframe, " to ")
			if !ok {
				inDaily = false
				continue
			}
			from, to = truncate(f, 10), truncate(t, 10)
			inDaily = true
			seen = map[string]bool{}
			continue
		}
		if !inDaily {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "Update ") {
			continue
		}
		pkg, vers, ok := strings.Cut(strings.TrimPrefix(trimmed, "Update "), " ")
		if !ok {
			continue
		}
		_, versNr, _ := strings.Cut(vers, "=")

		key := pkg + "\x00" + versNr
		if seen[key] {
			continue
		}
		seen[key] = true

		d.add(map[string]any{
			"action":       "update",
			"from":         from,
			"to":           to,
			"package_name": pkg,
			"vers":         versNr,
		})
	}
	return nil
}

func (d *DumpsysBatteryDaily) CheckIndicators(m Matcher) []core.Detection {
	return d.checkField(m, "package_name", core.CategoryAppID)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// =============================================================================
// Battery History
// =============================================================================

const batteryHistoryPrefix = "Battery History "

// Battery history events
const (
	EventStartJob = "start_job"
	EventEndJob   = "end_job"
	EventWake     = "wake"
	EventStartTop = "start_top"
	EventEndTop   = "end_top"
)

// DumpsysBatteryHistory parses job, wakeup alarm and foreground events from
// the battery history of `dumpsys batterystats`
type DumpsysBatteryHistory struct {
	records
}

var _ Artifact = (*DumpsysBatteryHistory)(nil)

func NewDumpsysBatteryHistory() *DumpsysBatteryHistory {
	return &DumpsysBatteryHistory{}
}

func (d *DumpsysBatteryHistory) Name() string {
	return "dumpsys_battery_history"
}

func (d *DumpsysBatteryHistory) Parse(input string) error {
	d.reset()

	inHistory := false
	for _, line := range splitLines(input) {
		if strings.HasPrefix(line, batteryHistoryPrefix) {
			inHistory = true
			continue
		}
		if !inHistory {
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		if rec := parseHistoryLine(line); rec != nil {
			d.add(rec)
		}
	}
	return nil
}

func parseHistoryLine(line string) map[string]any {
	elapsed, _, _ := strings.Cut(strings.TrimSpace(line), " ")

	var event, uid, service, pkg string
	switch {
	case strings.Contains(line, "+job="):
		event = EventStartJob
		uid, service = splitUIDValue(line, "+job=")
		pkg = packageOf(service)
	case strings.Contains(line, "-job="):
		event = EventEndJob
		uid, service = splitUIDValue(line, "-job=")
		pkg = packageOf(service)
	case strings.Contains(line, "+running +wake_lock="):
		event = EventWake
		uid, _ = splitUIDValue(line, "+running +wake_lock=")
		_, alarm, ok := strings.Cut(line, "*walarm*:")
		if !ok {
			return nil
		}
		alarm, _, _ = strings.Cut(alarm, " ")
		service = strings.TrimSpace(strings.Trim(alarm, `"`))
		if !strings.Contains(service, "/") {
			return nil
		}
		pkg = packageOf(service)
	case strings.Contains(line, "+top="):
		event = EventStartTop
		uid, pkg = splitUIDValue(line, "+top=")
	case strings.Contains(line, "-top="):
		event = EventEndTop
		uid, pkg = splitUIDValue(line, "-top=")
	default:
		return nil
	}

	return map[string]any{
		"time_elapsed": elapsed,
		"event":        event,
		"uid":          uid,
		"package_name": pkg,
		"service":      service,
	}
}

// splitUIDValue parses `<marker><uid>:"<value>"` out of a history line
func splitUIDValue(line, marker string) (uid, value string) {
	_, rest, _ := strings.Cut(line, marker)
	uid, value, _ = strings.Cut(rest, ":")
	if strings.HasPrefix(value, `"`) {
		value = value[1:]
		value, _, _ = strings.Cut(value, `"`)
		return uid, value
	}
	value, _, _ = strings.Cut(value, " ")
	return uid, value
}

func (d *DumpsysBatteryHistory) CheckIndicators(m Matcher) []core.Detection {
	return d.checkField(m, "package_name", core.CategoryAppID)
}
