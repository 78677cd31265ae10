package artifacts

import (
	"testing"

	"libmvt/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indicatorsOf(dets []core.Detection) []string {
	out := make([]string, len(dets))
	for i, d := range dets {
		out[i] = d.Indicator
	}
	return out
}

func TestProcesses(t *testing.T) {
	p := NewProcesses()
	require.NoError(t, p.Parse(testPs))

	results := p.Results()
	require.Len(t, results, 5)

	assert.Equal(t, "init", results[0]["proc_name"])
	assert.Equal(t, 1, results[0]["pid"])
	assert.Equal(t, 10904976, results[0]["vsz"])
	assert.Equal(t, "kthreadd", results[1]["proc_name"])
	assert.Equal(t, "", results[3]["wchan"])
	assert.Equal(t, "gatekeeperd", results[3]["proc_name"])
	assert.Equal(t, "u:r:untrusted_app:s0", results[4]["label"])
	assert.Equal(t, "u0_a99", results[4]["user"])

	dets := p.CheckIndicators(testIndicators(t))
	require.Len(t, dets, 2)
	assert.Equal(t, core.Detection{
		Category:  core.CategoryProcessName,
		Indicator: "com.bad.actor.malware",
		Observed:  "com.bad.actor.ma",
	}, dets[0])
	assert.Equal(t, core.CategoryAppID, dets[1].Category)
	assert.Equal(t, "com.topjohnwu.magisk", dets[1].Indicator)

	assert.Nil(t, p.CheckIndicators(nil))
}

func TestProcesses_ParseResets(t *testing.T) {
	p := NewProcesses()
	require.NoError(t, p.Parse(testPs))
	require.NoError(t, p.Parse("USER PID PPID VSZ RSS WCHAN ADDR S NAME\nroot 50 2 0 0 0 0 S com.bad.actor.ma\n"))
	assert.Len(t, p.Results(), 1)
}

func TestGetProp(t *testing.T) {
	g := NewGetProp()
	require.NoError(t, g.Parse(testGetProp))

	results := g.Results()
	require.Len(t, results, 3)
	assert.Equal(t, map[string]any{"name": "af.fast_track_multiplier", "value": "1"}, results[0])
	assert.Equal(t, "", results[2]["value"])

	assert.Equal(t, []string{"persist.sys.evil"}, indicatorsOf(g.CheckIndicators(testIndicators(t))))
}

func TestSettings(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.Parse(testSettings))

	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "0", results[0]["samsung_errorlog_agree"])
	assert.Equal(t, "value=with=equals", results[0]["some_other"])
	assert.NotContains(t, results[0], "noequalsline")

	dets := s.CheckIndicators(nil)
	assert.Equal(t, []string{"package_verifier_enable", "samsung_errorlog_agree"}, indicatorsOf(dets))
	assert.Equal(t, core.CategoryPropertyName, dets[0].Category)
	assert.Equal(t, "package_verifier_enable=0", dets[0].Observed)
}

func TestSettings_Empty(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.Parse("\n\n"))
	assert.Empty(t, s.Results())
	assert.Empty(t, s.CheckIndicators(nil))
}

func TestDumpsysAccessibility(t *testing.T) {
	t.Run("legacy", func(t *testing.T) {
		d := NewDumpsysAccessibility()
		require.NoError(t, d.Parse(testAccessibilityLegacy))

		results := d.Results()
		require.Len(t, results, 4)
		assert.Equal(t, "com.android.settings", results[0]["package_name"])
		assert.Equal(t, "com.android.settings/com.samsung.android.settings.development.gpuwatch.GPUWatchInterceptor", results[0]["service"])

		dets := d.CheckIndicators(testIndicators(t))
		require.Len(t, dets, 1)
		assert.Equal(t, core.CategoryAppID, dets[0].Category)
		assert.Equal(t, "com.sec.android.app.camera", dets[0].Indicator)
	})

	t.Run("android 14", func(t *testing.T) {
		d := NewDumpsysAccessibility()
		require.NoError(t, d.Parse(testAccessibilityV14))

		results := d.Results()
		require.Len(t, results, 1)
		assert.Equal(t, "com.malware.accessibility", results[0]["package_name"])
		assert.Equal(t, "com.malware.accessibility/com.malware.service.malwareservice", results[0]["service"])
		assert.Empty(t, d.CheckIndicators(testIndicators(t)))
	})
}

func TestDumpsysPlatformCompat(t *testing.T) {
	d := NewDumpsysPlatformCompat()
	require.NoError(t, d.Parse(testPlatformCompat))

	results := d.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "org.torproject.torbrowser", results[0]["package_name"])
	assert.Equal(t, "false", results[0]["override"])
	assert.Equal(t, "com.malware.app", results[1]["package_name"])

	assert.Equal(t, []string{"com.malware.app"}, indicatorsOf(d.CheckIndicators(testIndicators(t))))
}

func TestDumpsysActivities(t *testing.T) {
	d := NewDumpsysActivities()
	require.NoError(t, d.Parse(testPackage))

	results := d.Results()
	require.Len(t, results, 3)
	assert.Equal(t, map[string]any{
		"intent":       "android.intent.action.MAIN",
		"package_name": "com.samsung.android.app.social",
		"activity":     "com.samsung.android.app.social/.feed.FeedsActivity",
	}, results[0])
	assert.Equal(t, "com.evil.action.START", results[2]["intent"])

	assert.Equal(t, []string{"com.evil.spy", "com.evil.spy"}, indicatorsOf(d.CheckIndicators(testIndicators(t))))
}

func TestDumpsysReceivers(t *testing.T) {
	d := NewDumpsysReceivers()
	require.NoError(t, d.Parse(testPackage))

	results := d.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "com.android.storagemanager.automatic.SHOW_NOTIFICATION", results[0]["intent"])
	assert.Equal(t, "com.android.storagemanager", results[0]["package_name"])
	assert.Equal(t, "com.android.storagemanager/.automatic.NotificationController", results[0]["receiver"])

	assert.Equal(t, []string{"com.evil.spy"}, indicatorsOf(d.CheckIndicators(testIndicators(t))))
}

func TestDumpsysDBInfo(t *testing.T) {
	d := NewDumpsysDBInfo()
	require.NoError(t, d.Parse(testDBInfo))

	results := d.Results()
	require.Len(t, results, 3)
	assert.Equal(t, map[string]any{
		"timestamp": "2022-01-30 12:34:56.789",
		"pid":       1234,
		"action":    "executeForCursorWindow",
		"sql":       "PRAGMA database_list;",
		"path":      "/data/user/0/com.wssyncmldm/databases/idmsdk.db",
	}, results[0])
	assert.Equal(t, "executeForString", results[1]["action"])
	assert.NotContains(t, results[1], "pid")
	assert.Equal(t, "execute", results[2]["action"])
	assert.Equal(t, "/data/data/com.evil.spy/databases/loot.db", results[2]["path"])

	assert.Equal(t, []string{"com.evil.spy"}, indicatorsOf(d.CheckIndicators(testIndicators(t))))
}

func TestDumpsysBatteryDaily(t *testing.T) {
	d := NewDumpsysBatteryDaily()
	require.NoError(t, d.Parse(testBatteryStats))

	results := d.Results()
	require.Len(t, results, 4)
	assert.Equal(t, map[string]any{
		"action":       "update",
		"from":         "2022-01-28",
		"to":           "2022-01-29",
		"package_name": "com.evil.spy",
		"vers":         "12",
	}, results[0])
	assert.Equal(t, "com.android.chrome", results[1]["package_name"])
	assert.Equal(t, "2022-01-27", results[2]["from"])

	assert.Len(t, d.CheckIndicators(testIndicators(t)), 2)
}

func TestDumpsysBatteryHistory(t *testing.T) {
	d := NewDumpsysBatteryHistory()
	require.NoError(t, d.Parse(testBatteryStats))

	results := d.Results()
	require.Len(t, results, 5)

	assert.Equal(t, EventStartJob, results[0]["event"])
	assert.Equal(t, "u0a203", results[0]["uid"])
	assert.Equal(t, "com.samsung.android.app.reminder", results[0]["package_name"])
	assert.Equal(t, "com.samsung.android.app.reminder/.Job", results[0]["service"])
	assert.Equal(t, "+1s002ms", results[0]["time_elapsed"])
	assert.Equal(t, EventEndJob, results[1]["event"])
	assert.Equal(t, EventStartTop, results[2]["event"])
	assert.Equal(t, "u0a280", results[2]["uid"])
	assert.Equal(t, "com.whatsapp", results[2]["package_name"])
	assert.Equal(t, EventEndTop, results[3]["event"])
	assert.Equal(t, EventWake, results[4]["event"])
	assert.Equal(t, "com.sec.android.app.launcher", results[4]["package_name"])

	assert.Empty(t, d.CheckIndicators(testIndicators(t)))
}

func TestTombstoneCrashes(t *testing.T) {
	tc := NewTombstoneCrashes()
	require.NoError(t, tc.Parse(testTombstone))

	results := tc.Results()
	require.Len(t, results, 1)
	rec := results[0]
	assert.Equal(t, "mtk.ape.decoder", rec["process_name"])
	assert.Equal(t, 25541, rec["pid"])
	assert.Equal(t, 21307, rec["tid"])
	assert.Equal(t, 1046, rec["uid"])
	assert.Equal(t, []string{"/vendor/bin/hw/android.hardware.media.c2@1.2-mediatek"}, rec["command_line"])
	assert.Equal(t, "2023-04-12 12:32:40.518290", rec["timestamp"])

	assert.Equal(t, []string{"mtk.ape.decoder"}, indicatorsOf(tc.CheckIndicators(testIndicators(t))))
}

func TestTombstoneCrashes_Multiple(t *testing.T) {
	tc := NewTombstoneCrashes()
	require.NoError(t, tc.Parse(testTombstone+testTombstone))
	assert.Len(t, tc.Results(), 2)
}

func TestDumpsysAppops(t *testing.T) {
	d := NewDumpsysAppops()
	require.NoError(t, d.Parse(testAppops))

	results := d.Results()
	require.Len(t, results, 3)

	assert.Equal(t, "com.android.phone", results[0]["package_name"])
	assert.Equal(t, "0", results[0]["uid"])
	perms := results[0]["permissions"].([]map[string]any)
	require.Len(t, perms, 1)
	assert.Equal(t, "READ_ICC_SMS", perms[0]["name"])
	assert.Equal(t, "allow", perms[0]["access"])
	assert.Equal(t, []map[string]any{
		{"access": "Access", "type": "pers-s", "timestamp": "2022-03-29 18:37:30.315"},
	}, perms[0]["entries"])

	assert.Equal(t, "u0a123", results[1]["uid"])
	perms = results[1]["permissions"].([]map[string]any)
	require.Len(t, perms, 2)
	entries := perms[0]["entries"].([]map[string]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "Reject", entries[1]["access"])
	assert.Equal(t, "bg-s", entries[1]["type"])
	assert.Equal(t, map[string]any{
		"name":    "REQUEST_INSTALL_PACKAGES",
		"access":  "allow",
		"entries": []map[string]any{},
	}, perms[1])

	assert.Equal(t, "com.android.chrome", results[2]["package_name"])
	assert.Equal(t, []string{"com.evil.spy"}, d.InstallerPackages())

	assert.Equal(t, []string{"com.evil.spy"}, indicatorsOf(d.CheckIndicators(testIndicators(t))))
	assert.Nil(t, d.CheckIndicators(nil))
}

func TestDumpsysAppops_Empty(t *testing.T) {
	d := NewDumpsysAppops()
	require.NoError(t, d.Parse("Current AppOps Service state:\n  Settings:\n"))
	assert.Empty(t, d.Results())
}

func TestDumpsysPackages(t *testing.T) {
	d := NewDumpsysPackages()
	require.NoError(t, d.Parse(testPackages))

	results := d.Results()
	require.Len(t, results, 3)

	first := results[0]
	assert.Equal(t, "com.samsung.android.provider.filterprovider", first["package_name"])
	assert.Equal(t, "5.0.07", first["version_name"])
	assert.Equal(t, "500700000", first["version_code"])
	assert.Equal(t, "1000", first["uid"])
	assert.Equal(t, "2008-12-31 16:00:00", first["first_install_time"])
	assert.Equal(t, "null", first["installer"])
	assert.Equal(t, "/system/app/FilterProvider", first["code_path"])
	assert.Equal(t, []string{
		"android.permission.WRITE_SECURE_SETTINGS",
		"android.permission.INTERACT_ACROSS_USERS",
	}, first["requested_permissions"])
	assert.Equal(t, []map[string]any{
		{"name": "android.permission.WRITE_SECURE_SETTINGS", "type": "install", "granted": true},
		{"name": "android.permission.READ_PHONE_STATE", "type": "runtime", "granted": false},
	}, first["permissions"])

	assert.Equal(t, "com.evil.spy", results[1]["package_name"])
	assert.Equal(t, "12", results[1]["version_code"])
	assert.Empty(t, results[1]["requested_permissions"])

	dets := d.CheckIndicators(testIndicators(t))
	assert.Equal(t, []string{"com.evil.spy", "com.topjohnwu.magisk"}, indicatorsOf(dets))
}

func TestDumpsysPackages_RootPackagesNeedNoIndicators(t *testing.T) {
	d := NewDumpsysPackages()
	require.NoError(t, d.Parse(testPackages))

	assert.Equal(t, []core.Detection{{
		Category:  core.CategoryAppID,
		Indicator: "com.topjohnwu.magisk",
		Observed:  "com.topjohnwu.magisk",
	}}, d.CheckIndicators(nil))
}

func TestDumpsysPackages_NoPackageList(t *testing.T) {
	d := NewDumpsysPackages()
	require.NoError(t, d.Parse(testPackage))
	assert.Empty(t, d.Results())
}

func TestDumpsysAdb(t *testing.T) {
	d := NewDumpsysAdb()
	require.NoError(t, d.Parse(testAdb))

	results := d.Results()
	require.Len(t, results, 1)
	rec := results[0]

	assert.Equal(t, true, rec["connected_to_adb"])
	assert.Equal(t, "47:83:E7:84:B4:FA:2F:BA:9E:4D:65:02:DB:C6:4F:8F", rec["last_key_received"])
	assert.Equal(t, []map[string]any{
		{"adb_key": "QUJDREVGR0g=", "user": "alice@laptop", "fingerprint": "47:83:E7:84:B4:FA:2F:BA:9E:4D:65:02:DB:C6:4F:8F"},
		{"adb_key": "QUJD", "user": "bob@desktop", "fingerprint": "90:2F:BD:D2:B1:DF:0C:4F:70:B4:A5:D2:35:25:E9:32"},
	}, rec["user_keys"])
	assert.Equal(t, []map[string]any{{
		"adb_key":         "QUJDREVGR0g=",
		"user":            "alice@laptop",
		"fingerprint":     "47:83:E7:84:B4:FA:2F:BA:9E:4D:65:02:DB:C6:4F:8F",
		"last_connection": "1628501829898",
	}}, rec["keystore"])

	assert.Empty(t, d.CheckIndicators(testIndicators(t)))
}

func TestDumpsysAdb_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		records int
		wantErr bool
	}{
		{"empty section", "", 0, false},
		{"no keys", "{\n  debugging_manager={\n    connected_to_adb=false\n  }\n}\n", 1, false},
		{"broken keystore", "{\n  debugging_manager={\n    keystore=<keyStore><adbKey\n  }\n}\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDumpsysAdb()
			err := d.Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, d.Results(), tt.records)
		})
	}
}

func TestAdbKeyFingerprint(t *testing.T) {
	assert.Equal(t, "90:2F:BD:D2:B1:DF:0C:4F:70:B4:A5:D2:35:25:E9:32", AdbKeyFingerprint("QUJD"))
	assert.Equal(t, "", AdbKeyFingerprint("not base64!"))
}

func TestArtifactNames(t *testing.T) {
	for _, name := range AvailableModules() {
		spec, ok := lookupModule(name)
		require.True(t, ok)
		assert.Equal(t, name, spec.factory().Name())
	}
}
