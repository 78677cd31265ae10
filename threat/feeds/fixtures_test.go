package feeds

// Indicator fixtures shared by the loader, handler and updater tests

const testJSONIndicators = `{
  "indicators": [
    {
      "name": "Example spyware",
      "domain-name:value": ["Evil.Example", "  ", "c2.evil.example"],
      "ipv4-addr:value": "203.0.113.7",
      "url:value": ["https://evil.example/payload"],
      "process:name": ["com.bad.actor.malware"],
      "app:id": "com.topjohnwu.magisk",
      "android-property:name": ["persist.sys.evil"],
      "file:hashes.sha256": ["ignored"]
    },
    {
      "app:id": ["com.sec.android.app.camera", 42, {"nested": true}]
    }
  ]
}`

const testSTIXBundle = `{
  "type": "bundle",
  "id": "bundle--6f6f1f3c-6a8b-4b4e-9d7c-2b1c7f1e8a01",
  "objects": [
    {
      "type": "malware",
      "spec_version": "2.1",
      "id": "malware--0e5e3a2b-3b1c-4c3d-8e4f-5a6b7c8d9e01",
      "created": "2022-01-01T00:00:00.000Z",
      "modified": "2022-01-01T00:00:00.000Z",
      "name": "Predator",
      "is_family": false
    },
    {
      "type": "indicator",
      "spec_version": "2.1",
      "id": "indicator--a1b2c3d4-0001-4000-8000-000000000001",
      "created": "2022-01-01T00:00:00.000Z",
      "modified": "2022-01-01T00:00:00.000Z",
      "indicator_types": ["malicious-activity"],
      "pattern": "[domain-name:value = 'shortenurls.me']",
      "pattern_type": "stix",
      "valid_from": "2022-01-01T00:00:00Z"
    },
    {
      "type": "indicator",
      "spec_version": "2.1",
      "id": "indicator--a1b2c3d4-0002-4000-8000-000000000002",
      "created": "2022-01-01T00:00:00.000Z",
      "modified": "2022-01-01T00:00:00.000Z",
      "indicator_types": ["malicious-activity"],
      "pattern": "[app:id = 'com.predator.agent']",
      "pattern_type": "stix",
      "valid_from": "2022-01-01T00:00:00Z"
    },
    {
      "type": "indicator",
      "spec_version": "2.1",
      "id": "indicator--a1b2c3d4-0003-4000-8000-000000000003",
      "created": "2022-01-01T00:00:00.000Z",
      "modified": "2022-01-01T00:00:00.000Z",
      "indicator_types": ["malicious-activity"],
      "pattern": "[file:name = 'dropper.apk']",
      "pattern_type": "stix",
      "valid_from": "2022-01-01T00:00:00Z"
    }
  ]
}`

// testLooseBundle is readable JSON that the schema rejects (no bundle type,
// an indicator without an id), so only the lenient walk can load it.
const testLooseBundle = `{
  "objects": [
    {"type": "indicator", "pattern": "process:name = com.loose.proc"},
    {"type": "indicator", "pattern": "[android-property:name = 'ro.loose.flag']"},
    {"type": "indicator"},
    {"type": "identity", "pattern": "[app:id = 'com.not.an.indicator']"}
  ]
}`

const testInvalidSTIX = `{"type": "bundle", "objects": [ {"type": "indicator", `
