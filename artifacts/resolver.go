package artifacts

import (
	"strings"

	"libmvt/core"
)

const (
	activityResolverTable = "Activity Resolver Table:"
	receiverResolverTable = "Receiver Resolver Table:"
	nonDataActions        = "  Non-Data Actions:"

	intentIndent = "      "
	entryIndent  = "        "
)

// resolverTable parses the "Non-Data Actions" part of one resolver table in
// `dumpsys package` output. Intent lines sit at six spaces of indentation and
// are followed by their handlers at eight.
type resolverTable struct {
	records
	name     string
	table    string
	entryKey string
}

// DumpsysActivities lists activities registered for non-data intents
type DumpsysActivities struct {
	resolverTable
}

// DumpsysReceivers lists broadcast receivers registered for non-data intents
type DumpsysReceivers struct {
	resolverTable
}

var (
	_ Artifact = (*DumpsysActivities)(nil)
	_ Artifact = (*DumpsysReceivers)(nil)
)

func NewDumpsysActivities() *DumpsysActivities {
	return &DumpsysActivities{resolverTable{name: "dumpsys_activities", table: activityResolverTable, entryKey: "activity"}}
}

func NewDumpsysReceivers() *DumpsysReceivers {
	return &DumpsysReceivers{resolverTable{name: "dumpsys_receivers", table: receiverResolverTable, entryKey: "receiver"}}
}

func (t *resolverTable) Name() string {
	return t.name
}

func (t *resolverTable) Parse(input string) error {
	t.reset()

	inTable, inActions := false, false
	intent := ""

	for _, line := range splitLines(input) {
		if strings.HasPrefix(line, t.table) {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		if strings.HasPrefix(line, nonDataActions) {
			inActions = true
			continue
		}
		if !inActions {
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(line, intentIndent) && !strings.HasPrefix(line, entryIndent) && strings.HasSuffix(trimmed, ":") {
			intent = strings.TrimSuffix(trimmed, ":")
			continue
		}
		if intent == "" {
			continue
		}
		if !strings.HasPrefix(line, entryIndent) {
			intent = ""
			continue
		}

		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			continue
		}
		component := fields[1]
		t.add(map[string]any{
			"intent":       intent,
			"package_name": packageOf(component),
			t.entryKey:     component,
		})
	}
	return nil
}

func (t *resolverTable) CheckIndicators(m Matcher) []core.Detection {
	return t.checkField(m, "package_name", core.CategoryAppID)
}
