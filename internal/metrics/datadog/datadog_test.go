package datadog

import (
	"context"
	"net/http"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"partsetl/internal/metrics"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

func newTestBackend(t *testing.T, fs *fakeSubmitter) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Options{
		JobName:   "parts-etl-test",
		submitter: fs,
		now:       func() time.Time { return time.Unix(1700000000, 0) },
		// Effectively disables the periodic loop; tests call Flush directly.
		newTicker: func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

// TestResolveEnvTag verifies environment-tag precedence: ENV wins over
// DD_ENV; whitespace-only values are ignored; the default is env:unknown.
func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

// TestFlushSubmitsAndResets verifies Flush submits buffered observations and
// that an immediate second Flush has nothing to send.
func TestFlushSubmitsAndResets(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(MetricListingsTotal, 3, metrics.Labels{"kind": "extracted", "category": "CPU"})
	b.IncCounter(MetricListingsTotal, 1, metrics.Labels{"kind": "dropped", "category": "CPU"})
	b.IncCounter(MetricBatchesTotal, 2, nil)
	b.ObserveHistogram(MetricCategorySeconds, 1.25, metrics.Labels{"category": "CPU"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("payloads=%d, want 1", fs.count())
	}

	payload, _ := fs.last()
	var names []string
	for _, s := range payload.Series {
		names = append(names, s.Metric)
	}
	for _, want := range []string{
		"partsetl.listings.total",
		"partsetl.batches.total",
		"partsetl.category.duration_seconds.p50",
		"partsetl.category.duration_seconds.p95",
		"partsetl.category.duration_seconds.max",
		"partsetl.category.duration_seconds.count",
	} {
		if !contains(names, want) {
			t.Fatalf("missing series %q in %v", want, names)
		}
	}

	// Buffers were reset: an empty flush does not submit.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("empty flush must not submit; payloads=%d", fs.count())
	}
}

// TestIncCounterIgnoresUnknownAndNonPositive pins the filtering contract: the
// backend only knows the pipeline's metric names, and deltas <= 0 are dropped.
func TestIncCounterIgnoresUnknownAndNonPositive(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter("someone_elses_metric", 5, nil)
	b.IncCounter(MetricListingsTotal, 0, metrics.Labels{"kind": "extracted"})
	b.IncCounter(MetricListingsTotal, -1, metrics.Labels{"kind": "extracted"})
	b.IncCounter(MetricListingsTotal, 1, metrics.Labels{"category": "CPU"}) // no kind

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fs.count() != 0 {
		t.Fatalf("nothing should have been buffered; payloads=%d", fs.count())
	}
}

// TestBuildSeriesTags verifies tagging: base tags on every series plus
// kind/category dimensions where they apply.
func TestBuildSeriesTags(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	series := b.buildSeries(snapshot{
		listingCounts:   map[string]float64{"extracted|CPU": 7},
		batchCount:      1,
		durationSamples: map[string][]float64{"CPU": {0.5, 1.5}},
	}, 1700000000)

	for _, s := range series {
		if !contains(s.Tags, "job:parts-etl-test") {
			t.Fatalf("series %q missing job tag: %v", s.Metric, s.Tags)
		}
		switch s.Metric {
		case "partsetl.listings.total":
			if !contains(s.Tags, "kind:extracted") || !contains(s.Tags, "category:CPU") {
				t.Fatalf("listing series tags: %v", s.Tags)
			}
			if *s.Points[0].Value != 7 {
				t.Fatalf("listing value: %v", *s.Points[0].Value)
			}
		case "partsetl.category.duration_seconds.max":
			if *s.Points[0].Value != 1.5 {
				t.Fatalf("max value: %v", *s.Points[0].Value)
			}
		}
	}
}

// TestCloseFlushesTail verifies Close stops the loop and performs the final
// flush of whatever is still buffered.
func TestCloseFlushesTail(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		JobName:   "tail",
		submitter: fs,
		newTicker: func(d time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(MetricBatchesTotal, 1, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fs.count() != 1 {
		t.Fatalf("tail flush missing; payloads=%d", fs.count())
	}
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    []float64
		q    float64
		want float64
	}{
		{name: "empty", s: nil, q: 0.50, want: 0},
		{name: "single", s: []float64{7}, q: 0.95, want: 7},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, q: 0.50, want: 3},
		{name: "p95_small_n", s: []float64{1, 2, 3, 4, 5}, q: 0.95, want: 5},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := percentile(tc.s, tc.q); got != tc.want {
				t.Fatalf("percentile(%v,%v)=%v, want %v", tc.s, tc.q, got, tc.want)
			}
		})
	}
}

// TestWithTags verifies tag concatenation and that the output never aliases
// the shared base slice.
func TestWithTags(t *testing.T) {
	t.Parallel()

	base := []string{"env:test", "job:parts-etl"}
	got := withTags(base, "category:CPU")
	want := []string{"env:test", "job:parts-etl", "category:CPU"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatalf("withTags output aliases base slice")
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	got := ParseTagsCSV(" env:prod, team:hw ,, ")
	if !reflect.DeepEqual(got, []string{"env:prod", "team:hw"}) {
		t.Fatalf("ParseTagsCSV: %v", got)
	}
	if got := ParseTagsCSV(""); got != nil {
		t.Fatalf("empty input: %v", got)
	}
}
