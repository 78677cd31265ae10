package artifacts

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"libmvt/core"
)

// DumpsysAdb parses `dumpsys adb`. The debugging manager state is printed as
// an indented key=value dump in which user_keys and keystore run over
// several lines:
//
//	debugging_manager={
//	  connected_to_adb=true
//	  last_key_received=32:1F:...
//	  user_keys=QAAAA... user@host
//	  keystore=<?xml version='1.0' ...
//	<keyStore version="1">
//	<adbKey key="QAAAA... user@host" lastConnection="1628501829898" />
//	</keyStore>
//	}
//
// The single record lists the computers the device trusts for debugging.
type DumpsysAdb struct {
	records
}

var _ Artifact = (*DumpsysAdb)(nil)

func NewDumpsysAdb() *DumpsysAdb {
	return &DumpsysAdb{}
}

func (d *DumpsysAdb) Name() string {
	return "dumpsys_adb"
}

func (d *DumpsysAdb) Parse(input string) error {
	d.reset()

	values := parseIndentedDump(input)
	if len(values) == 0 {
		return nil
	}

	rec := map[string]any{
		"connected_to_adb":  values["connected_to_adb"] == "true",
		"last_key_received": values["last_key_received"],
		"user_keys":         parseAdbUserKeys(values["user_keys"]),
	}
	keystore, err := parseAdbKeystore(values["keystore"])
	if err != nil {
		return fmt.Errorf("failed to parse adb keystore: %w", err)
	}
	rec["keystore"] = keystore
	d.add(rec)
	return nil
}

// parseIndentedDump flattens a "key={ ... }" dump into key/value pairs.
// Lines that do not start a new key continue the previous value.
func parseIndentedDump(input string) map[string]string {
	values := map[string]string{}
	current := ""
	for _, line := range splitLines(input) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "{" || trimmed == "}" {
			current = ""
			continue
		}
		if key, value, ok := strings.Cut(trimmed, "="); ok && isDumpKey(key) {
			if value == "{" {
				current = ""
				continue
			}
			values[key] = value
			current = key
			continue
		}
		if current != "" {
			values[current] += "\n" + trimmed
		}
	}
	return values
}

func isDumpKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// parseAdbUserKeys reads "base64key user@host" lines
func parseAdbUserKeys(value string) []map[string]any {
	keys := []map[string]any{}
	for _, line := range splitLines(value) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		keys = append(keys, adbKeyRecord(line))
	}
	return keys
}

func adbKeyRecord(line string) map[string]any {
	key, user, _ := strings.Cut(line, " ")
	return map[string]any{
		"adb_key":     key,
		"user":        strings.TrimSpace(user),
		"fingerprint": AdbKeyFingerprint(key),
	}
}

// AdbKeyFingerprint returns the MD5 fingerprint adb shows for a public key,
// as colon separated upper case hex. It is empty if key is not base64.
func AdbKeyFingerprint(key string) string {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return ""
	}
	sum := md5.Sum(raw)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

type adbKeystore struct {
	Keys []struct {
		Key            string `xml:"key,attr"`
		LastConnection string `xml:"lastConnection,attr"`
	} `xml:"adbKey"`
}

func parseAdbKeystore(value string) ([]map[string]any, error) {
	entries := []map[string]any{}
	value = strings.TrimSpace(value)
	if value == "" {
		return entries, nil
	}

	var ks adbKeystore
	if err := xml.Unmarshal([]byte(value), &ks); err != nil {
		return nil, err
	}
	for _, k := range ks.Keys {
		entry := adbKeyRecord(k.Key)
		entry["last_connection"] = k.LastConnection
		entries = append(entries, entry)
	}
	return entries, nil
}

// CheckIndicators returns nothing: trusted keys carry no indicator values,
// they are listed for the analyst to review.
func (d *DumpsysAdb) CheckIndicators(m Matcher) []core.Detection {
	return nil
}
