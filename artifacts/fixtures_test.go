package artifacts

import (
	"strings"
	"testing"

	"libmvt/core"
	"libmvt/threat"

	"github.com/stretchr/testify/require"
)

// testIndicators builds an engine with the indicators the fixtures hit
func testIndicators(t *testing.T) *threat.Indicators {
	t.Helper()
	b := threat.NewBuilder()
	b.Add(core.CategoryProcessName, "com.bad.actor.malware")
	b.Add(core.CategoryProcessName, "gatekeeperd")
	b.Add(core.CategoryProcessName, "mtk.ape.decoder")
	b.Add(core.CategoryAppID, "com.topjohnwu.magisk")
	b.Add(core.CategoryAppID, "com.sec.android.app.camera")
	b.Add(core.CategoryAppID, "com.malware.app")
	b.Add(core.CategoryAppID, "com.evil.spy")
	b.Add(core.CategoryPropertyName, "persist.sys.evil")
	ind, err := b.Build()
	require.NoError(t, err)
	return ind
}

const testPs = `USER           PID  PPID     VSZ    RSS WCHAN            ADDR S NAME
root             1     0 10904976 9232 0                   0 S init
root             2     0       0      0 0                   0 S [kthreadd]
u0_a123       4321   700 1234567  98765 do_epoll_wait       0 S com.bad.actor.ma
system         900   700 2222222  11111                     0 S gatekeeperd
u:r:untrusted_app:s0 u0_a99 5000 700 1000 2000 0 0 S com.topjohnwu.magisk
short line
`

const testGetProp = `[af.fast_track_multiplier]: [1]
[ro.build.version.sdk]: [33]
[persist.sys.evil]: []
garbage
`

const testSettings = `package_verifier_enable=0
samsung_errorlog_agree=0
accessibility_enabled=0
adb_install_need_confirm=1
some_other=value=with=equals
noequalsline
`

const testAccessibilityLegacy = `ACCESSIBILITY MANAGER (dumpsys accessibility)

currentUserId=0
User state[
     attributes:{id=0, touchExplorationEnabled=false}
     installed services: {
       0 : com.android.settings/com.samsung.android.settings.development.gpuwatch.GPUWatchInterceptor
       1 : com.samsung.accessibility/.universalswitch.UniversalSwitchService
       2 : com.sec.android.app.camera/com.samsung.android.glview.AccessibilityGLViewService
       3 : com.google.android.marvin.talkback/.TalkBackService
     }
     Bound services:{}
`

const testAccessibilityV14 = `ACCESSIBILITY MANAGER (dumpsys accessibility)

User state[
     attributes:{id=0, touchExplorationEnabled=false}
     Enabled services:{{com.malware.accessibility/com.malware.service.malwareservice}}
`

const testPlatformCompat = `ChangeId(123; name=OTHER; rawOverrides={com.ignored=true};)
  ChangeId(168419799; name=DOWNSCALED; disabled; packageOverrides={}; rawOverrides={org.torproject.torbrowser=false, com.malware.app=true};)
`

const testPackage = `Activity Resolver Table:
  Non-Data Actions:
      android.intent.action.MAIN:
        5b4d0f5 com.samsung.android.app.social/.feed.FeedsActivity filter 7f0e5a8
        1a2b3c4 com.evil.spy/.MainActivity filter 9d8c7b6
      com.evil.action.START:
        aaaa111 com.evil.spy/.StartActivity filter bbbb222
  MIME Typed Actions:

Receiver Resolver Table:
  Non-Data Actions:
      com.android.storagemanager.automatic.SHOW_NOTIFICATION:
        7d1f9e2 com.android.storagemanager/.automatic.NotificationController filter 3c5d7e9
      android.intent.action.BOOT_COMPLETED:
        abcdef0 com.evil.spy/.BootReceiver filter 1234567

Service Resolver Table:
`

const testDBInfo = `Applications Database Info:

** Database info for pid 1234 [com.wssyncmldm] **

Connection pool for /data/user/0/com.wssyncmldm/databases/idmsdk.db:
  Open: true
  Max connections: 1
  Most recently executed operations:
        0: [2022-01-30 12:34:56.789] [Pid:(1234)]executeForCursorWindow took 2ms - succeeded, sql="PRAGMA database_list;", path=/data/user/0/com.wssyncmldm/databases/idmsdk.db
        1: [2022-01-30 12:34:56.700] executeForString took 0ms - succeeded, sql="SELECT 1", path=/data/user/0/com.wssyncmldm/databases/idmsdk.db
        2: not an operation
  Prepared statement cache:

Connection pool for /data/data/com.evil.spy/databases/loot.db:
  Most recently executed operations:
        0: [2022-01-30 12:35:00.000] [Pid:(4321)] execute took 1ms - succeeded, sql="INSERT INTO loot VALUES (?)", path=/data/data/com.evil.spy/databases/loot.db
`

const testBatteryStats = `Battery History (2% used, 5KB used of 256KB, 45 strings using 2KB):
                    0 (15) RESET:TIME: 2022-01-30-10-00-00
           +1s002ms (2) 100 +job=u0a203:"com.samsung.android.app.reminder/.Job"
           +1s300ms (2) 100 -job=u0a203:"com.samsung.android.app.reminder/.Job"
           +2s100ms (2) 100 +top=u0a280:"com.whatsapp"
           +3s000ms (2) 100 -top=u0a280:"com.whatsapp"
           +4s000ms (3) 100 +running +wake_lock=u0a50:"*walarm*:com.sec.android.app.launcher/.Alarm"
           +5s000ms (3) 100 +running +wake_lock=u0a51:"*walarm*:nopackage"

Per-PID Stats:
  PID 1234 wake time: +1s

  Daily stats:
    Current start time: 2022-01-30-00-00-00
  Daily from 2022-01-28-03-15-01 to 2022-01-29-03-15-01:
    Update com.evil.spy vers=12
    Update com.android.chrome vers=4515
    Update com.evil.spy vers=12
  Daily from 2022-01-27-03-15-01 to 2022-01-28-03-15-01:
    Update com.evil.spy vers=12
    Update com.whatsapp vers=2211
`

const testTombstone = `*** *** *** *** *** *** *** *** *** *** *** *** *** *** *** ***
Build fingerprint: 'samsung/a51/a51:12/SP1A.210812.016/A515FXXU5EVK1:user/release-keys'
Timestamp: 2023-04-12 12:32:40.518290105+0200
Process uptime: 0s
Cmdline: /vendor/bin/hw/android.hardware.media.c2@1.2-mediatek
pid: 25541, tid: 21307, name: mtk.ape.decoder  >>> /vendor/bin/hw/android.hardware.media.c2@1.2-mediatek <<<
uid: 1046
signal 6 (SIGABRT), code -1 (SI_QUEUE), fault addr --------
`

// testDumpsys wraps service sections the way dumpsys.txt separates them
func testDumpsys(sections map[string]string, order ...string) string {
	delim := strings.Repeat("-", 78)
	var sb strings.Builder
	for _, svc := range order {
		sb.WriteString(delim + "\n")
		sb.WriteString("DUMP OF SERVICE " + svc + ":\n")
		sb.WriteString(sections[svc])
		sb.WriteString(delim + " 0.010s was the duration of dumpsys " + svc + "\n")
	}
	return sb.String()
}

const testAppops = `Current AppOps Service state:
  Settings:
    top_state_settle_time=+30s0ms
  Current mode: bg

  Uid 0:
    state=cch
      LEGACY_STORAGE: mode=ignore
    Package com.android.phone:
      READ_ICC_SMS (allow):
        null=[
          Access: [pers-s] 2022-03-29 18:37:30.315 (-186d17h39m17s549ms)
        ]
  Uid u0a123:
    state=top
    Package com.evil.spy:
      CAMERA (allow):
          Access: [fg-s] 2022-05-01 10:00:00.000 (-10d)
          Reject: [bg-s] 2022-05-02 11:00:00.000 (-9d)
      REQUEST_INSTALL_PACKAGES: mode=allow
  Uid u0a124:
    Package com.android.chrome:
      REQUEST_INSTALL_PACKAGES (deny):

  Permission ops:
    Package com.ignored:
`

const testPackages = `Packages:
  Package [com.samsung.android.provider.filterprovider] (3d4a5b6):
    userId=1000
    pkg=Package{c2f5a1d com.samsung.android.provider.filterprovider}
    codePath=/system/app/FilterProvider
    versionCode=500700000 minSdk=31 targetSdk=31
    versionName=5.0.07
    timeStamp=2008-12-31 16:00:00
    firstInstallTime=2008-12-31 16:00:00
    lastUpdateTime=2008-12-31 16:00:00
    installerPackageName=null
    requested permissions:
      android.permission.WRITE_SECURE_SETTINGS
      android.permission.INTERACT_ACROSS_USERS
    install permissions:
      android.permission.WRITE_SECURE_SETTINGS: granted=true
    User 0: ceDataInode=0 installed=true hidden=false
      runtime permissions:
        android.permission.READ_PHONE_STATE: granted=false, flags=[ USER_SET ]
  Package [com.evil.spy] (aa11bb2):
    userId=10123
    versionCode=12 minSdk=24 targetSdk=30
    versionName=1.2
  Package [com.topjohnwu.magisk] (cc33dd4):
    userId=10200
    versionName=25.2

Hidden system packages:
  Package [com.hidden.app] (ee55ff6):
    userId=10300
`

const testAdb = `ADB MANAGER STATE (dumpsys adb):
{
  debugging_manager={
    connected_to_adb=true
    last_key_received=47:83:E7:84:B4:FA:2F:BA:9E:4D:65:02:DB:C6:4F:8F
    user_keys=QUJDREVGR0g= alice@laptop
QUJD bob@desktop

    keystore=<?xml version='1.0' encoding='utf-8' standalone='yes' ?>
<keyStore version="1">
<adbKey key="QUJDREVGR0g= alice@laptop" lastConnection="1628501829898" />
</keyStore>

  }
}
`
