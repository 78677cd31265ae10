package artifacts

import (
	"strings"

	"libmvt/core"
)

// requestInstallPackages lets an app install other apps without the store
const requestInstallPackages = "REQUEST_INSTALL_PACKAGES"

// DumpsysAppops parses `dumpsys appops`. Records are per package:
//
//	  Uid u0a123:
//	    Package com.example:
//	      CAMERA (allow):
//	        null=[
//	          Access: [fg-s] 2022-03-29 18:37:30.315 (-186d17h39m17s549ms)
//	        ]
//
// Each record carries package_name, uid and permissions; a permission has a
// name, an optional access mode and its access/reject entries.
type DumpsysAppops struct {
	records
}

var _ Artifact = (*DumpsysAppops)(nil)

func NewDumpsysAppops() *DumpsysAppops {
	return &DumpsysAppops{}
}

func (d *DumpsysAppops) Name() string {
	return "dumpsys_appops"
}

func (d *DumpsysAppops) Parse(input string) error {
	d.reset()

	var (
		uid     string
		pkg     map[string]any
		perms   []map[string]any
		perm    map[string]any
		entries []map[string]any
	)

	closePerm := func() {
		if perm == nil {
			return
		}
		if entries == nil {
			entries = []map[string]any{}
		}
		perm["entries"] = entries
		perms = append(perms, perm)
		perm, entries = nil, nil
	}
	closePackage := func() {
		closePerm()
		if pkg == nil {
			return
		}
		if perms == nil {
			perms = []map[string]any{}
		}
		pkg["permissions"] = perms
		d.add(pkg)
		pkg, perms = nil, nil
	}

	for _, line := range splitLines(input) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))

		switch {
		case indent == 2 && strings.HasPrefix(trimmed, "Uid ") && strings.HasSuffix(trimmed, ":"):
			closePackage()
			uid = strings.TrimSuffix(strings.TrimPrefix(trimmed, "Uid "), ":")

		case indent <= 2:
			// Any other top level block ends the uid list.
			closePackage()
			uid = ""

		case indent == 4 && strings.HasPrefix(trimmed, "Package ") && strings.HasSuffix(trimmed, ":"):
			closePackage()
			if uid == "" {
				continue
			}
			pkg = map[string]any{
				"package_name": strings.TrimSuffix(strings.TrimPrefix(trimmed, "Package "), ":"),
				"uid":          uid,
			}

		case pkg == nil:

		case indent == 6:
			closePerm()
			perm = parseAppopsPermission(trimmed)

		case perm != nil && indent >= 8:
			if entry, ok := parseAppopsEntry(trimmed); ok {
				entries = append(entries, entry)
			}
		}
	}
	closePackage()
	return nil
}

// parseAppopsPermission reads "NAME (mode):" or "NAME: mode=mode"
func parseAppopsPermission(line string) map[string]any {
	line = strings.TrimSuffix(line, ":")
	perm := map[string]any{}

	if open := strings.Index(line, " ("); open > 0 {
		perm["name"] = line[:open]
		perm["access"] = strings.TrimSuffix(line[open+2:], ")")
		return perm
	}
	name, rest, _ := strings.Cut(line, ":")
	perm["name"] = strings.TrimSpace(name)
	if _, mode, ok := strings.Cut(rest, "mode="); ok {
		perm["access"] = strings.TrimSpace(mode)
	}
	return perm
}

// parseAppopsEntry reads "Access: [fg-s] 2022-03-29 18:37:30.315 (-186d...)"
func parseAppopsEntry(line string) (map[string]any, bool) {
	access, rest, ok := strings.Cut(line, ":")
	if !ok || (access != "Access" && access != "Reject") {
		return nil, false
	}
	entry := map[string]any{"access": access}

	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end > 0 {
			entry["type"] = rest[1:end]
			rest = rest[end+1:]
		}
	}
	if paren := strings.Index(rest, "("); paren >= 0 {
		rest = rest[:paren]
	}
	entry["timestamp"] = strings.TrimSpace(rest)
	return entry, true
}

// InstallerPackages returns the packages allowed to install other apps
func (d *DumpsysAppops) InstallerPackages() []string {
	var out []string
	for _, rec := range d.results {
		perms, _ := rec["permissions"].([]map[string]any)
		for _, perm := range perms {
			if perm["name"] == requestInstallPackages && perm["access"] == "allow" {
				name, _ := rec["package_name"].(string)
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func (d *DumpsysAppops) CheckIndicators(m Matcher) []core.Detection {
	return d.checkField(m, "package_name", core.CategoryAppID)
}
