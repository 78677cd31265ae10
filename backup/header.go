package backup

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"libmvt/core"
)

// =============================================================================
// Container Header
// =============================================================================

const (
	// Magic is the first line of every backup container
	Magic = "ANDROID BACKUP"

	AlgorithmNone   = "none"
	AlgorithmAES256 = "AES-256"
)

// Header is the parsed line-oriented preamble of a backup container. The
// key material fields are only set when Algorithm is AES-256.
type Header struct {
	Version       int
	Compressed    bool
	Algorithm     string
	UserSalt      []byte
	ChecksumSalt  []byte
	Rounds        int
	UserIV        []byte
	MasterKeyBlob []byte
}

// Encrypted reports whether the payload is encrypted
func (h *Header) Encrypted() bool {
	return h.Algorithm == AlgorithmAES256
}

// ReadHeader parses the container header and returns it with the payload
// bytes that follow it. Failures are FormatError.
func ReadHeader(data []byte) (*Header, []byte, error) {
	lr := &lineReader{buf: data}

	if magic := lr.next(); magic != Magic {
		return nil, nil, formatError("bad magic", nil)
	}

	version, err := strconv.Atoi(lr.next())
	if err != nil {
		return nil, nil, formatError("bad version", err)
	}

	h := &Header{
		Version:    version,
		Compressed: lr.next() == "1",
		Algorithm:  lr.next(),
	}

	switch h.Algorithm {
	case AlgorithmNone:
	case AlgorithmAES256:
		if err := h.readKeyMaterial(lr); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, formatError("unsupported algorithm", fmt.Errorf("%q", h.Algorithm))
	}

	return h, lr.rest(), nil
}

func (h *Header) readKeyMaterial(lr *lineReader) error {
	var err error
	if h.UserSalt, err = hexLine(lr, "user salt"); err != nil {
		return err
	}
	if h.ChecksumSalt, err = hexLine(lr, "checksum salt"); err != nil {
		return err
	}
	if h.Rounds, err = strconv.Atoi(lr.next()); err != nil {
		return formatError("bad rounds", err)
	}
	if h.Rounds <= 0 {
		return formatError("bad rounds", fmt.Errorf("%d", h.Rounds))
	}
	if h.UserIV, err = hexLine(lr, "user iv"); err != nil {
		return err
	}
	if h.MasterKeyBlob, err = hexLine(lr, "master key blob"); err != nil {
		return err
	}
	return nil
}

func hexLine(lr *lineReader, field string) ([]byte, error) {
	b, err := hex.DecodeString(lr.next())
	if err != nil {
		return nil, formatError("bad "+field, err)
	}
	return b, nil
}

func formatError(op string, err error) error {
	return core.NewBackupError(core.KindFormat, op, err)
}

// lineReader splits newline-terminated header lines off a byte slice. A
// final line without a terminator runs to the end of the input.
type lineReader struct {
	buf []byte
	off int
}

func (r *lineReader) next() string {
	if r.off >= len(r.buf) {
		return ""
	}
	rest := r.buf[r.off:]
	i := bytes.IndexByte(rest, '\n')
	if i < 0 {
		r.off = len(r.buf)
		return string(rest)
	}
	r.off += i + 1
	return string(rest[:i])
}

func (r *lineReader) rest() []byte {
	return r.buf[r.off:]
}
