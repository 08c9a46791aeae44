package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	TrackListRequests  atomic.Int64
	TrackFetchRequests atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	QABatches          atomic.Int64
	AnswerSubmissions  atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"transcript_requests":  metrics.TranscriptRequests.Load(),
		"track_list_requests":  metrics.TrackListRequests.Load(),
		"track_fetch_requests": metrics.TrackFetchRequests.Load(),
		"llm_calls":            metrics.LLMCalls.Load(),
		"llm_errors":           metrics.LLMErrors.Load(),
		"qa_batches":           metrics.QABatches.Load(),
		"answer_submissions":   metrics.AnswerSubmissions.Load(),
		"cache_hits":           hits,
		"cache_misses":         misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"transcript_requests", "track_list_requests", "track_fetch_requests",
		"llm_calls", "llm_errors", "qa_batches", "answer_submissions",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the engine and its sub-packages.
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTrackListRequests()  { metrics.TrackListRequests.Add(1) }
func IncrTrackFetchRequests() { metrics.TrackFetchRequests.Add(1) }
func IncrLLMCalls()           { metrics.LLMCalls.Add(1) }
func IncrLLMErrors()          { metrics.LLMErrors.Add(1) }
func IncrQABatches()          { metrics.QABatches.Add(1) }
func IncrAnswerSubmissions()  { metrics.AnswerSubmissions.Add(1) }
