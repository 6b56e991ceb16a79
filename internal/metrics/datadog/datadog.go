// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The backend buffers observations in memory (lock-protected), submits them
// on a periodic ticker, and submits one final time on Close. Periodic
// submission gives long pipeline runs a real time series instead of a single
// spike at shutdown; the tail flush covers short-lived runs.
//
// Concurrency model:
//   - Pipeline goroutines call IncCounter/ObserveHistogram at any time.
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out-of-lock.
//   - The flush loop calls Flush periodically; Close stops the loop.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"partsetl/internal/metrics"
)

// Metric names accepted from the pipeline. Unknown names are ignored by
// design so the core never has to know which backend is installed.
const (
	MetricListingsTotal   = "parts_listings_total"
	MetricBatchesTotal    = "parts_batches_total"
	MetricCategorySeconds = "parts_category_duration_seconds"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to
	// "parts-etl".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls submission cadence; defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; unit tests use
	// them to avoid real clocks, tickers and network submission.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK we depend on.
// The concrete *datadogV2.MetricsApi satisfies it; tests install a fake.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	// listingCounts is keyed by "kind|category".
	listingCounts map[string]float64
	batchCount    float64
	// durationSamples is keyed by category.
	durationSamples map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials come from the SDK's default context (DD_API_KEY etc.); network
// errors surface from Flush, not from construction.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "parts-etl"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,

		listingCounts:   make(map[string]float64),
		durationSamples: make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case MetricListingsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.listingCounts[kind+"|"+labels["category"]] += delta

	case MetricBatchesTotal:
		b.batchCount += delta

	default:
		// Ignore unknown metrics by design.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case MetricCategorySeconds:
		cat := labels["category"]
		if cat == "" {
			cat = "unknown"
		}
		b.durationSamples[cat] = append(b.durationSamples[cat], value)

	default:
		// Ignore unknown histograms by design.
	}
}

// snapshot separates collect+reset (under lock) from payload building and
// submission (out of lock).
type snapshot struct {
	listingCounts   map[string]float64
	batchCount      float64
	durationSamples map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		listingCounts:   b.listingCounts,
		batchCount:      b.batchCount,
		durationSamples: b.durationSamples,
	}
	b.listingCounts = make(map[string]float64)
	b.batchCount = 0
	b.durationSamples = make(map[string][]float64)
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.listingCounts) == 0 && s.batchCount == 0 && len(s.durationSamples) == 0
}

// Flush submits buffered metrics and resets local buffers. Buffers reset
// even when submission fails, to keep the pipeline from blocking on a slow
// or unreachable intake.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, network or clocks) so tests can pin the
// naming and tagging contract.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	addCount := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}
	addGauge := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.listingCounts)+len(s.durationSamples)*3+1)

	for k, v := range s.listingCounts {
		if v == 0 {
			continue
		}
		kind, category, _ := strings.Cut(k, "|")
		tags := withTags(b.baseTags, "kind:"+kind)
		if category != "" {
			tags = append(tags, "category:"+category)
		}
		series = append(series, addCount("partsetl.listings.total", v, tags))
	}

	if s.batchCount != 0 {
		series = append(series, addCount("partsetl.batches.total", s.batchCount, b.baseTags))
	}

	for category, samples := range s.durationSamples {
		if len(samples) == 0 {
			continue
		}
		sorted := append([]float64(nil), samples...)
		sort.Float64s(sorted)
		tags := withTags(b.baseTags, "category:"+category)
		series = append(series,
			addGauge("partsetl.category.duration_seconds.p50", percentile(sorted, 0.50), tags),
			addGauge("partsetl.category.duration_seconds.p95", percentile(sorted, 0.95), tags),
			addGauge("partsetl.category.duration_seconds.max", sorted[len(sorted)-1], tags),
			addCount("partsetl.category.duration_seconds.count", float64(len(sorted)), tags),
		)
	}

	return series
}

// percentile returns the nearest-rank percentile of pre-sorted samples.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ParseTagsCSV turns a comma-separated "k:v,k:v" string (typically from an
// environment variable) into a tag slice, dropping empty entries.
func ParseTagsCSV(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// withTags returns a fresh slice; base is shared across series and must not
// be appended to in place.
func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}
