package backup

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"libmvt/core"
	"libmvt/util"

	"github.com/dlclark/regexp2"
	"github.com/klauspost/compress/zlib"
)

// =============================================================================
// Archive and Message Extraction
// =============================================================================

const (
	// TelephonyPrefix is where the telephony provider stores its SMS/MMS backups
	TelephonyPrefix = "apps/com.android.providers.telephony/d_f/"

	smsSuffix = "_sms_backup"
	mmsSuffix = "_mms_backup"

	// ISODateLayout is the format of the derived "isodate" field (UTC)
	ISODateLayout = "2006-01-02 15:04:05.000000"
)

var linkRegex = util.MustCompileSafe(`https?://\S+`, regexp2.IgnoreCase)

// Inflate decompresses a zlib stream. Failures are DecompressionError.
func Inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, core.NewBackupError(core.KindDecompression, "inflate", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, core.NewBackupError(core.KindDecompression, "inflate", err)
	}
	return out, nil
}

// IsMessageEntry reports whether an archive path is an SMS or MMS backup
func IsMessageEntry(name string) bool {
	return strings.HasPrefix(name, TelephonyPrefix) &&
		(strings.HasSuffix(name, smsSuffix) || strings.HasSuffix(name, mmsSuffix))
}

// ParseTar walks a decrypted, decompressed backup archive and returns the
// messages of every SMS/MMS entry in archive order.
func ParseTar(r io.Reader) ([]core.SmsRecord, error) {
	tr := tar.NewReader(r)
	var records []core.SmsRecord

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.NewBackupError(core.KindFormat, "read archive", err)
		}
		if !IsMessageEntry(hdr.Name) {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, core.NewBackupError(core.KindFormat, "read archive entry "+hdr.Name, err)
		}
		entry, err := ParseMessageEntry(data)
		if err != nil {
			return nil, err
		}
		records = append(records, entry...)
	}

	return records, nil
}

// ParseMessageEntry decodes one zlib-compressed JSON array of message records
// and enriches each record.
func ParseMessageEntry(data []byte) ([]core.SmsRecord, error) {
	raw, err := Inflate(data)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []core.SmsRecord
	if err := dec.Decode(&records); err != nil {
		return nil, core.NewBackupError(core.KindFormat, "decode message records", err)
	}

	out := records[:0]
	for _, rec := range records {
		if rec == nil {
			continue
		}
		enrichRecord(rec)
		out = append(out, rec)
	}
	return out, nil
}

func enrichRecord(rec core.SmsRecord) {
	if body, ok := rec["mms_body"]; ok {
		rec["body"] = body
		delete(rec, "mms_body")
	}

	if body, ok := rec["body"].(string); ok {
		// A match timeout keeps whatever links were found before it.
		links, _ := linkRegex.FindAll(body)
		if len(links) > 0 {
			rec["links"] = links
		} else if strings.TrimSpace(body) == "" {
			rec["links"] = []string{}
		}
	}

	rec["isodate"] = FormatISODate(int64Field(rec, "date"))
	if int64Field(rec, "date_sent") > 0 {
		rec["direction"] = core.DirectionSent
	} else {
		rec["direction"] = core.DirectionReceived
	}
}

// FormatISODate renders epoch milliseconds as a UTC timestamp
func FormatISODate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(ISODateLayout)
}

// int64Field reads a numeric or numeric-string field, defaulting to 0
func int64Field(rec core.SmsRecord, key string) int64 {
	var s string
	switch v := rec[key].(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
