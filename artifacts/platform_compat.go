package artifacts

import (
	"strings"

	"libmvt/core"
)

// downscaledChange is the compat change id used to force app downscaling
const downscaledChange = "ChangeId(168419799; name=DOWNSCALED"

// DumpsysPlatformCompat parses `dumpsys platform_compat` and lists the
// packages with a DOWNSCALED override.
type DumpsysPlatformCompat struct {
	records
}

var _ Artifact = (*DumpsysPlatformCompat)(nil)

func NewDumpsysPlatformCompat() *DumpsysPlatformCompat {
	return &DumpsysPlatformCompat{}
}

func (d *DumpsysPlatformCompat) Name() string {
	return "dumpsys_platform_compat"
}

func (d *DumpsysPlatformCompat) Parse(input string) error {
	d.reset()
	for _, line := range splitLines(input) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, downscaledChange) {
			continue
		}
		_, overrides, ok := strings.Cut(line, "rawOverrides={")
		if !ok {
			continue
		}
		overrides, _, _ = strings.Cut(overrides, "};")

		for _, entry := range strings.Split(overrides, ",") {
			pkg, override, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if !ok || pkg == "" {
				continue
			}
			d.add(map[string]any{
				"package_name": pkg,
				"override":     override,
			})
		}
	}
	return nil
}

func (d *DumpsysPlatformCompat) CheckIndicators(m Matcher) []core.Detection {
	return d.checkField(m, "package_name", core.CategoryAppID)
}
