package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backup pipeline metrics.
//
// BackupsProcessed is labelled with the outcome: "ok" or the error kind name
// ("FormatError", "InvalidPassword", "CryptoError", "DecompressionError").

var (
	BackupsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libmvt",
			Subsystem: "backup",
			Name:      "processed_total",
			Help:      "Total number of backup containers processed",
		},
		[]string{"result"},
	)

	// BackupDecryptDuration covers key derivation plus payload decryption.
	// PBKDF2 dominates, so buckets run from milliseconds to tens of seconds.
	BackupDecryptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "libmvt",
			Subsystem: "backup",
			Name:      "decrypt_duration_seconds",
			Help:      "Time spent deriving keys and decrypting backup payloads",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SmsRecordsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "libmvt",
			Subsystem: "backup",
			Name:      "sms_records_extracted_total",
			Help:      "Total number of SMS/MMS records extracted from backups",
		},
	)
)
