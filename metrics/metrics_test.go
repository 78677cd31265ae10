package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, IndicatorsLoaded)
	assert.NotNil(t, IndicatorLoadWarnings)
	assert.NotNil(t, Detections)
	assert.NotNil(t, MatchCacheLookups)
	assert.NotNil(t, ArtifactsParsed)
	assert.NotNil(t, BackupsProcessed)
	assert.NotNil(t, BackupDecryptDuration)
	assert.NotNil(t, SmsRecordsExtracted)
}

func TestBackupsProcessedByResult(t *testing.T) {
	before := testutil.ToFloat64(BackupsProcessed.WithLabelValues("InvalidPassword"))
	BackupsProcessed.WithLabelValues("InvalidPassword").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BackupsProcessed.WithLabelValues("InvalidPassword")))
}
