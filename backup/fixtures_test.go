package backup

import (
	"archive/tar"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// testRounds keeps key derivation fast in tests
const testRounds = 100

type tarEntry struct {
	name string
	data []byte
}

type containerOpts struct {
	version    int
	compressed bool
	password   string
	archive    []byte

	// checksumVersion is the version the master key checksum is computed
	// for; zero means version. It lets a header claim another version.
	checksumVersion int
	// badChecksum stores a checksum that does not match the master key
	badChecksum bool
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarBytes(t *testing.T, entries ...tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Mode:     0o600,
			Size:     int64(len(e.data)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// messageEntry builds a zlib-compressed JSON array entry
func messageEntry(t *testing.T, name, jsonArray string) tarEntry {
	t.Helper()
	return tarEntry{name: name, data: zlibBytes(t, []byte(jsonArray))}
}

func encryptCBC(t *testing.T, key, iv, plain []byte) []byte {
	t.Helper()
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	return encryptBlocks(t, key, iv, padded)
}

// encryptBlocks encrypts whole blocks without adding padding
func encryptBlocks(t *testing.T, key, iv, blocks []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(blocks))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, blocks)
	return out
}

// widenedKeyBytes encodes each key byte the way the device does for version 2+
// checksums: the signed byte is widened to a 16-bit char and UTF-8 encoded.
func widenedKeyBytes(key []byte) []byte {
	var out []byte
	for _, b := range key {
		out = utf8.AppendRune(out, rune(uint16(int8(b))))
	}
	return out
}

func sequence(start byte, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i*7)
	}
	return b
}

// buildContainer assembles a backup container the way the device writes one.
// The master key deliberately contains bytes above 0x7f so the version 2+
// checksum encoding is exercised.
func buildContainer(t *testing.T, opts containerOpts) []byte {
	t.Helper()

	payload := opts.archive
	if opts.compressed {
		payload = zlibBytes(t, payload)
	}
	compressed := "0"
	if opts.compressed {
		compressed = "1"
	}

	var out bytes.Buffer
	if opts.password == "" {
		fmt.Fprintf(&out, "%s\n%d\n%s\n%s\n", Magic, opts.version, compressed, AlgorithmNone)
		out.Write(payload)
		return out.Bytes()
	}

	userSalt := sequence(0x11, 64)
	checksumSalt := sequence(0x22, 64)
	userIV := sequence(0x33, aes.BlockSize)
	masterIV := sequence(0x44, aes.BlockSize)
	masterKey := sequence(0x90, keyLength)

	checksumVersion := opts.checksumVersion
	if checksumVersion == 0 {
		checksumVersion = opts.version
	}
	checksumInput := masterKey
	if checksumVersion > 1 {
		checksumInput = widenedKeyBytes(masterKey)
	}
	checksum := pbkdf2.Key(checksumInput, checksumSalt, testRounds, keyLength, sha1.New)
	if opts.badChecksum {
		checksum[0] ^= 0xff
	}

	var blob bytes.Buffer
	blob.WriteByte(byte(len(masterIV)))
	blob.Write(masterIV)
	blob.WriteByte(byte(len(masterKey)))
	blob.Write(masterKey)
	blob.WriteByte(byte(len(checksum)))
	blob.Write(checksum)

	userKey := pbkdf2.Key([]byte(opts.password), userSalt, testRounds, keyLength, sha1.New)
	encBlob := encryptCBC(t, userKey, userIV, blob.Bytes())

	upper := func(b []byte) string { return strings.ToUpper(hex.EncodeToString(b)) }
	fmt.Fprintf(&out, "%s\n%d\n%s\n%s\n%s\n%s\n%d\n%s\n%s\n",
		Magic, opts.version, compressed, AlgorithmAES256,
		upper(userSalt), upper(checksumSalt), testRounds, upper(userIV), upper(encBlob))
	out.Write(encryptCBC(t, masterKey, masterIV, payload))
	return out.Bytes()
}

const (
	testSmsJSON = `[
  {"address": "+15550100", "body": "check http://evil.example/x", "date": "1600000000000", "date_sent": "0", "type": "1"},
  {"address": "+15550101", "body": "see HTTPS://Evil.Example/a?b=c and http://two.example", "date": 1600000001000, "date_sent": 1600000001000},
  {"address": "+15550102", "body": "   ", "date": "garbage"},
  {"address": "+15550103", "body": "no links here"}
]`

	testMmsJSON = `[
  {"address": "+15550104", "mms_body": "https://mms.example/p", "date": "1600000002000", "date_sent": "1600000002000"},
  null
]`
)

func testArchive(t *testing.T) []byte {
	t.Helper()
	return tarBytes(t,
		tarEntry{name: "apps/com.android.providers.telephony/_manifest", data: []byte("manifest")},
		messageEntry(t, TelephonyPrefix+"000000_sms_backup", testSmsJSON),
		messageEntry(t, TelephonyPrefix+"000000_call_backup", `[{"body": "http://ignored.example"}]`),
		messageEntry(t, "apps/com.other/d_f/000000_sms_backup", `[{"body": "http://ignored.example"}]`),
		messageEntry(t, TelephonyPrefix+"000000_mms_backup", testMmsJSON),
	)
}
