package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndicatorsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libmvt_indicators_loaded_total",
			Help: "Total number of distinct indicators indexed",
		},
		[]string{"category"},
	)

	IndicatorLoadWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "libmvt_indicator_load_warnings_total",
			Help: "Total number of indicator files skipped during loading",
		},
	)

	Detections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libmvt_detections_total",
			Help: "Total number of indicator detections",
		},
		[]string{"category"},
	)

	MatchCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libmvt_match_cache_lookups_total",
			Help: "Total number of match cache lookups",
		},
		[]string{"result"},
	)

	ArtifactsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "libmvt_artifacts_parsed_total",
			Help: "Total number of artifact modules run",
		},
		[]string{"module"},
	)
)
