package artifacts

import (
	"strings"

	"libmvt/core"
	"libmvt/util"
)

var (
	legacyServiceLine = util.MustCompileSafe(`^\s*(\d+) : (.+)`, 0)
	enabledService    = util.MustCompileSafe(`\{\{(.+?)\}\}`, 0)
)

// DumpsysAccessibility parses `dumpsys accessibility`. Older releases list
// "installed services:" in a numbered block; Android 14 and later print
// "Enabled services:{{pkg/service}}".
type DumpsysAccessibility struct {
	records
}

var _ Artifact = (*DumpsysAccessibility)(nil)

func NewDumpsysAccessibility() *DumpsysAccessibility {
	return &DumpsysAccessibility{}
}

func (d *DumpsysAccessibility) Name() string {
	return "dumpsys_accessibility"
}

func (d *DumpsysAccessibility) Parse(input string) error {
	d.reset()
	lines := splitLines(input)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "installed services:"):
			if err := d.parseLegacy(lines[i+1:]); err != nil {
				return err
			}
		case strings.HasPrefix(trimmed, "Enabled services:"):
			if err := d.parseEnabled(lines[i:]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *DumpsysAccessibility) parseLegacy(lines []string) error {
	for _, line := range lines {
		groups, err := legacyServiceLine.FindSubmatch(line)
		if err != nil {
			return err
		}
		if groups != nil {
			d.addService(strings.TrimSpace(groups[2]))
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "}") {
			return nil
		}
	}
	return nil
}

// parseEnabled takes the services on the first line carrying any
func (d *DumpsysAccessibility) parseEnabled(lines []string) error {
	for _, line := range lines {
		services, err := enabledService.FindAll(line)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			continue
		}
		for _, s := range services {
			d.addService(strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "{{"), "}}")))
		}
		return nil
	}
	return nil
}

func (d *DumpsysAccessibility) addService(service string) {
	d.add(map[string]any{
		"package_name": packageOf(service),
		"service":      service,
	})
}

func (d *DumpsysAccessibility) CheckIndicators(m Matcher) []core.Detection {
	return d.checkField(m, "package_name", core.CategoryAppID)
}
