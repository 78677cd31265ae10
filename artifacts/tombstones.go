package artifacts

import (
	"path"
	"strconv"
	"strings"

	"libmvt/core"
	"libmvt/util"
)

// tombstoneSeparator opens every text tombstone
const tombstoneSeparator = "*** *** *** *** *** *** *** *** *** *** *** *** *** *** *** ***"

var tzSuffix = util.MustCompileSafe(`[+-]\d{4}$`, 0)

// TombstoneCrashes parses text tombstones written by debuggerd. The input may
// hold several tombstones, each opened by the standard separator line.
type TombstoneCrashes struct {
	records
}

var _ Artifact = (*TombstoneCrashes)(nil)

func NewTombstoneCrashes() *TombstoneCrashes {
	return &TombstoneCrashes{}
}

func (t *TombstoneCrashes) Name() string {
	return "tombstones"
}

func (t *TombstoneCrashes) Parse(input string) error {
	t.reset()

	rec := map[string]any{}
	flush := func() {
		if len(rec) > 0 {
			t.add(rec)
		}
		rec = map[string]any{}
	}

	for _, line := range splitLines(input) {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, tombstoneSeparator):
			flush()
		case strings.HasPrefix(line, "Timestamp:"):
			ts, err := normalizeTombstoneTime(strings.TrimSpace(strings.TrimPrefix(line, "Timestamp:")))
			if err != nil {
				return err
			}
			rec["timestamp"] = ts
		case strings.HasPrefix(line, "Cmdline:"):
			rec["command_line"] = []string{strings.TrimSpace(strings.TrimPrefix(line, "Cmdline:"))}
		case strings.HasPrefix(line, "uid:"):
			if uid, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "uid:"))); err == nil {
				rec["uid"] = uid
			}
		case strings.HasPrefix(line, "pid:"):
			parseTombstonePid(line, rec)
		}
	}
	flush()
	return nil
}

// parseTombstonePid reads `pid: 1, tid: 2, name: proc  >>> /path <<<`
func parseTombstonePid(line string, rec map[string]any) {
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return
	}
	valueOf := func(part string) string {
		_, v, _ := strings.Cut(part, ":")
		return strings.TrimSpace(v)
	}

	if pid, err := strconv.Atoi(valueOf(parts[0])); err == nil {
		rec["pid"] = pid
	}
	if tid, err := strconv.Atoi(valueOf(parts[1])); err == nil {
		rec["tid"] = tid
	}
	rest := strings.TrimSpace(parts[2])
	if strings.HasPrefix(rest, "name:") {
		name, _, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(rest, "name:")), ">>>")
		rec["process_name"] = strings.TrimSpace(name)
	}
}

// normalizeTombstoneTime drops the UTC offset and keeps microseconds
func normalizeTombstoneTime(ts string) (string, error) {
	loc, err := tzSuffix.FindSubmatch(ts)
	if err != nil {
		return "", err
	}
	if loc != nil {
		ts = strings.TrimSuffix(ts, loc[0])
	}
	if sec, frac, ok := strings.Cut(ts, "."); ok {
		ts = sec + "." + truncate(frac, 6)
	}
	return ts, nil
}

// CheckIndicators checks the crashing process name and the executable name
// from the command line as process names.
func (t *TombstoneCrashes) CheckIndicators(m Matcher) []core.Detection {
	if m == nil {
		return nil
	}
	var out []core.Detection
	for _, rec := range t.results {
		if name, _ := rec["process_name"].(string); name != "" {
			out = append(out, m.MatchString(name, core.CategoryProcessName)...)
		}
		if cmd, _ := rec["command_line"].([]string); len(cmd) > 0 && cmd[0] != "" {
			out = append(out, m.MatchString(path.Base(cmd[0]), core.CategoryProcessName)...)
		}
	}
	return out
}
