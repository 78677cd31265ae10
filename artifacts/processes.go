package artifacts

import (
	"strconv"
	"strings"

	"libmvt/core"
)

// gatekeeperd collides with a known indicator and is always a false positive
const gatekeeperd = "gatekeeperd"

// Processes parses the output of `ps -A` (ps.txt)
type Processes struct {
	records
}

var _ Artifact = (*Processes)(nil)

func NewProcesses() *Processes {
	return &Processes{}
}

func (p *Processes) Name() string {
	return "processes"
}

func (p *Processes) Parse(input string) error {
	p.reset()

	for _, line := range splitLines(input) {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == "USER" {
			continue
		}

		rec := map[string]any{}
		// SELinux-enabled builds prefix each row with the security label
		if strings.HasPrefix(fields[0], "u:r:") {
			rec["label"] = fields[0]
			fields = fields[1:]
		}
		// A blank WCHAN column collapses away when split
		if len(fields) == 8 {
			fields = append(fields[:5], append([]string{""}, fields[5:]...)...)
		}
		if len(fields) < 9 {
			continue
		}

		rec["user"] = fields[0]
		rec["pid"] = atoiOr(fields[1])
		rec["ppid"] = atoiOr(fields[2])
		rec["vsz"] = atoiOr(fields[3])
		rec["rss"] = atoiOr(fields[4])
		rec["wchan"] = fields[5]
		rec["addr"] = fields[6]
		rec["state"] = fields[7]
		rec["proc_name"] = strings.Trim(strings.Join(fields[8:], " "), "[]")
		p.add(rec)
	}
	return nil
}

// CheckIndicators checks each process name as an app id first, then as a
// process name.
func (p *Processes) CheckIndicators(m Matcher) []core.Detection {
	if m == nil {
		return nil
	}
	var out []core.Detection
	for _, rec := range p.results {
		name, _ := rec["proc_name"].(string)
		if name == "" || name == gatekeeperd {
			continue
		}
		if dets := m.MatchString(name, core.CategoryAppID); len(dets) > 0 {
			out = append(out, dets...)
			continue
		}
		out = append(out, m.MatchString(name, core.CategoryProcessName)...)
	}
	return out
}

func atoiOr(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
