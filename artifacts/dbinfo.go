package artifacts

import (
	"strings"

	"libmvt/core"
	"libmvt/util"
)

var (
	dbOperationWithPid = util.MustCompileSafe(
		`\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3})\].*?\[Pid:\((\d+)\)\]\s*(\w+).*?sql="(.+?)"`, 0)
	dbOperation = util.MustCompileSafe(
		`\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3})\] (\w+).*?sql="(.+?)"`, 0)
)

const (
	connectionPoolPrefix = "Connection pool for "
	recentOperations     = "Most recently executed operations:"
)

// DumpsysDBInfo parses the recent operations of each SQLite connection pool
// in `dumpsys dbinfo`
type DumpsysDBInfo struct {
	records
}

var _ Artifact = (*DumpsysDBInfo)(nil)

func NewDumpsysDBInfo() *DumpsysDBInfo {
	return &DumpsysDBInfo{}
}

func (d *DumpsysDBInfo) Name() string {
	return "dumpsys_dbinfo"
}

func (d *DumpsysDBInfo) Parse(input string) error {
	d.reset()

	pool := ""
	inOperations := false

	for _, line := range splitLines(input) {
		if strings.HasPrefix(line, connectionPoolPrefix) {
			pool = strings.TrimSuffix(strings.TrimPrefix(line, connectionPoolPrefix), ":")
			inOperations = false
			continue
		}
		if pool == "" {
			continue
		}
		if strings.TrimSpace(line) == recentOperations {
			inOperations = true
			continue
		}
		if !inOperations {
			continue
		}
		if !strings.HasPrefix(line, entryIndent) {
			pool, inOperations = "", false
			continue
		}

		rec, err := parseDBOperation(line)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		rec["path"] = pool
		d.add(rec)
	}
	return nil
}

func parseDBOperation(line string) (map[string]any, error) {
	groups, err := dbOperationWithPid.FindSubmatch(line)
	if err != nil {
		return nil, err
	}
	if groups != nil {
		return map[string]any{
			"timestamp": groups[1],
			"pid":       atoiOr(groups[2]),
			"action":    groups[3],
			"sql":       groups[4],
		}, nil
	}

	groups, err = dbOperation.FindSubmatch(line)
	if err != nil || groups == nil {
		return nil, err
	}
	return map[string]any{
		"timestamp": groups[1],
		"action":    groups[2],
		"sql":       groups[3],
	}, nil
}

// CheckIndicators checks every segment of each database path as an app id,
// which catches the package directory under /data/data or /data/user.
func (d *DumpsysDBInfo) CheckIndicators(m Matcher) []core.Detection {
	if m == nil {
		return nil
	}
	var out []core.Detection
	for _, rec := range d.results {
		path, _ := rec["path"].(string)
		for _, part := range strings.Split(path, "/") {
			if part == "" {
				continue
			}
			out = append(out, m.MatchString(part, core.CategoryAppID)...)
		}
	}
	return out
}
