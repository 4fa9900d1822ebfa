// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Uploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripnote_uploads_total",
		Help: "Number of document uploads accepted into the pipeline.",
	})
	IngestionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripnote_ingestion_failures_total",
		Help: "Number of uploads rejected because text extraction failed.",
	})
	ExtractionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripnote_extraction_fallbacks_total",
		Help: "Number of itinerary extractions that degraded to the fallback.",
	})
	ChatTurns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripnote_chat_turns_total",
		Help: "Number of chat turns submitted.",
	})
	ChatFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripnote_chat_failures_total",
		Help: "Number of chat turns rendered as error messages.",
	})
	ExportSkippedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripnote_export_skipped_events_total",
		Help: "Number of itinerary events skipped during calendar export.",
	})
)
