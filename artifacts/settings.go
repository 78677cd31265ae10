package artifacts

import (
	"strings"

	"libmvt/core"
)

// DangerousSetting is a device setting whose non-default value weakens the
// device's protections
type DangerousSetting struct {
	Key         string
	SafeValue   string
	Description string
}

// DangerousSettings lists the settings checked by the settings module
var DangerousSettings = []DangerousSetting{
	{"verifier_verify_adb_installs", "1", "disabled Google Play Services apps verification"},
	{"package_verifier_enable", "1", "disabled Google Play Protect"},
	{"package_verifier_state", "1", "disabled Google Play Protect"},
	{"package_verifier_user_consent", "1", "disabled Google Play Protect"},
	{"upload_apk_enable", "1", "disabled APK package verification"},
	{"adb_install_need_confirm", "1", "disabled confirmation of adb apps installation"},
	{"send_security_reports", "1", "disabled sharing of security reports"},
	{"samsung_errorlog_agree", "1", "disabled sharing of crash logs with manufacturer"},
	{"send_action_app_error", "1", "disabled applications errors reports"},
	{"install_non_market_apps", "0", "enabled installation of non Google Play apps"},
	{"accessibility_enabled", "0", "enabled accessibility services"},
}

// Settings parses `settings list` output (settings_*.txt). All key=value
// lines are merged into a single record.
type Settings struct {
	records
}

var _ Artifact = (*Settings)(nil)

func NewSettings() *Settings {
	return &Settings{}
}

func (s *Settings) Name() string {
	return "settings"
}

func (s *Settings) Parse(input string) error {
	s.reset()
	values := map[string]any{}
	for _, line := range splitLines(input) {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		values[key] = value
	}
	if len(values) > 0 {
		s.add(values)
	}
	return nil
}

// CheckIndicators reports every dangerous setting that differs from its safe
// value. It needs no indicators, so m is unused.
func (s *Settings) CheckIndicators(m Matcher) []core.Detection {
	var out []core.Detection
	for _, rec := range s.results {
		for _, ds := range DangerousSettings {
			raw, ok := rec[ds.Key]
			if !ok {
				continue
			}
			value, _ := raw.(string)
			if value == ds.SafeValue {
				continue
			}
			out = append(out, core.Detection{
				Category:  core.CategoryPropertyName,
				Indicator: ds.Key,
				Observed:  ds.Key + "=" + value,
			})
		}
	}
	return out
}
