// Package backup opens Android backup (.ab) containers and extracts the SMS
// and MMS records stored by the telephony provider.
package backup

import (
	"bytes"
	"time"

	"libmvt/core"
	"libmvt/metrics"

	"go.uber.org/zap"
)

// Parser runs the container pipeline: header, key unwrap, payload decryption,
// inflate and message extraction. It holds no per-call state and is safe for
// concurrent use.
type Parser struct {
	logger *zap.SugaredLogger
}

// NewParser creates a parser. A nil logger disables logging.
func NewParser(logger *zap.SugaredLogger) *Parser {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Parser{logger: logger}
}

// Archive is a decrypted and decompressed container
type Archive struct {
	Header *Header
	Data   []byte
}

// Open decrypts (when encrypted) and inflates (when compressed) a container
// and returns the raw archive bytes. Every failure is a *core.BackupError.
func (p *Parser) Open(data []byte, password string) (*Archive, error) {
	h, payload, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	if h.Encrypted() {
		start := time.Now()
		mk, err := DeriveMasterKey(h, password)
		if err != nil {
			return nil, err
		}
		payload, err = mk.Decrypt(payload)
		if err != nil {
			return nil, err
		}
		metrics.BackupDecryptDuration.Observe(time.Since(start).Seconds())
	}

	if h.Compressed {
		payload, err = Inflate(payload)
		if err != nil {
			return nil, err
		}
	}

	return &Archive{Header: h, Data: payload}, nil
}

// Parse opens a container and extracts its SMS/MMS records
func (p *Parser) Parse(data []byte, password string) ([]core.SmsRecord, error) {
	records, err := p.parse(data, password)
	if err != nil {
		kind := core.BackupErrorKind(err)
		metrics.BackupsProcessed.WithLabelValues(kind.String()).Inc()
		p.logger.Warnw("Backup processing failed", "kind", kind.String(), "error", err)
		return nil, err
	}

	metrics.BackupsProcessed.WithLabelValues("ok").Inc()
	metrics.SmsRecordsExtracted.Add(float64(len(records)))
	p.logger.Infow("Backup processed", "records", len(records))
	return records, nil
}

func (p *Parser) parse(data []byte, password string) ([]core.SmsRecord, error) {
	archive, err := p.Open(data, password)
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("Backup opened",
		"version", archive.Header.Version,
		"compressed", archive.Header.Compressed,
		"algorithm", archive.Header.Algorithm,
		"archive_bytes", len(archive.Data))
	return ParseTar(bytes.NewReader(archive.Data))
}

// Parse is Parser.Parse without logging
func Parse(data []byte, password string) ([]core.SmsRecord, error) {
	return NewParser(nil).Parse(data, password)
}
