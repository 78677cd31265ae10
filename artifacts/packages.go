package artifacts

import (
	"strings"

	"libmvt/core"
)

// RootPackages are apps that grant or manage root access
var RootPackages = []string{
	"com.noshufou.android.su",
	"com.noshufou.android.su.elite",
	"eu.chainfire.supersu",
	"com.koushikdutta.superuser",
	"com.thirdparty.superuser",
	"com.yellowes.su",
	"com.koushikdutta.rommanager",
	"com.koushikdutta.rommanager.license",
	"com.dimonvideo.luckypatcher",
	"com.chelpus.lackypatch",
	"com.ramdroid.appquarantine",
	"com.ramdroid.appquarantinepro",
	"com.devadvance.rootcloak",
	"com.devadvance.rootcloakplus",
	"de.robv.android.xposed.installer",
	"com.saurik.substrate",
	"com.zachspong.temprootremovejb",
	"com.amphoras.hidemyroot",
	"com.amphoras.hidemyrootadfree",
	"com.formyhm.hiderootPremium",
	"com.formyhm.hideroot",
	"me.phh.superuser",
	"eu.chainfire.supersu.pro",
	"com.kingouser.com",
	"com.topjohnwu.magisk",
}

// packageFields maps "key=value" lines of a package block to record keys
var packageFields = map[string]string{
	"userId":               "uid",
	"versionName":          "version_name",
	"versionCode":          "version_code",
	"timeStamp":            "timestamp",
	"firstInstallTime":     "first_install_time",
	"lastUpdateTime":       "last_update_time",
	"installerPackageName": "installer",
	"codePath":             "code_path",
	"dataDir":              "data_dir",
}

// DumpsysPackages parses the "Packages:" list of `dumpsys package`. Each
// "  Package [name] (hash):" block becomes one record with its version,
// install times and permissions.
type DumpsysPackages struct {
	records
}

var _ Artifact = (*DumpsysPackages)(nil)

func NewDumpsysPackages() *DumpsysPackages {
	return &DumpsysPackages{}
}

func (d *DumpsysPackages) Name() string {
	return "dumpsys_packages"
}

func (d *DumpsysPackages) Parse(input string) error {
	d.reset()

	var (
		pkg         map[string]any
		inList      bool
		block       string // permission list being read
		blockIndent int
	)

	for _, line := range splitLines(input) {
		trimmed := strings.TrimSpace(line)
		if !inList {
			inList = trimmed == "Packages:"
			continue
		}
		if trimmed == "" {
			break
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))

		if indent == 2 && strings.HasPrefix(trimmed, "Package [") {
			if pkg != nil {
				d.add(pkg)
			}
			pkg = newPackageRecord(trimmed)
			block = ""
			continue
		}
		if pkg == nil {
			continue
		}

		if block != "" && indent > blockIndent {
			addPackagePermission(pkg, block, trimmed)
			continue
		}
		block = ""

		if strings.HasSuffix(trimmed, "permissions:") {
			block = strings.TrimSuffix(trimmed, " permissions:")
			blockIndent = indent
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		field, known := packageFields[key]
		if !known {
			continue
		}
		if field == "version_code" {
			value, _, _ = strings.Cut(value, " ")
		}
		pkg[field] = strings.TrimSpace(value)
	}
	if pkg != nil {
		d.add(pkg)
	}
	return nil
}

func newPackageRecord(header string) map[string]any {
	name := strings.TrimPrefix(header, "Package [")
	name, _, _ = strings.Cut(name, "]")
	return map[string]any{
		"package_name":          name,
		"uid":                   "",
		"version_name":          "",
		"version_code":          "",
		"requested_permissions": []string{},
		"permissions":           []map[string]any{},
	}
}

// addPackagePermission records one line of a "<kind> permissions:" list.
// Requested permissions are bare names; install and runtime ones carry
// "name: granted=bool, flags=[...]".
func addPackagePermission(pkg map[string]any, kind, line string) {
	switch kind {
	case "requested":
		pkg["requested_permissions"] = append(pkg["requested_permissions"].([]string), line)
	case "install", "runtime":
		name, rest, _ := strings.Cut(line, ":")
		perm := map[string]any{"name": name, "type": kind}
		if strings.Contains(rest, "granted=") {
			perm["granted"] = strings.Contains(rest, "granted=true")
		}
		pkg["permissions"] = append(pkg["permissions"].([]map[string]any), perm)
	}
}

func isRootPackage(name string) bool {
	for _, root := range RootPackages {
		if root == name {
			return true
		}
	}
	return false
}

// CheckIndicators reports installed root packages without indicators and
// checks every other package name as an app id.
func (d *DumpsysPackages) CheckIndicators(m Matcher) []core.Detection {
	var out []core.Detection
	for _, rec := range d.results {
		name, _ := rec["package_name"].(string)
		if name == "" {
			continue
		}
		if isRootPackage(name) {
			out = append(out, core.Detection{
				Category:  core.CategoryAppID,
				Indicator: name,
				Observed:  name,
			})
			continue
		}
		if m != nil {
			out = append(out, m.MatchString(name, core.CategoryAppID)...)
		}
	}
	return out
}
