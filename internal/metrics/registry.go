package metrics

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrConfiguration = errors.New("invalid metric configuration")
	ErrUnknownMetric = errors.New("unknown metric")
	ErrLabelMismatch = errors.New("label values do not match metric labels")
	ErrInvalidValue  = errors.New("invalid observation value")
	ErrSeriesLimit   = errors.New("metric series limit reached")
)

const DefaultMaxSeries = 1000

type Kind int

const (
	KindCounter Kind = iota
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Definition describes a metric. It must not be modified after Register.
type Definition struct {
	Name    string
	Kind    Kind
	Labels  []string
	Help    string
	Buckets []float64
}

func (d Definition) equal(o Definition) bool {
	return d.Name == o.Name &&
		d.Kind == o.Kind &&
		d.Help == o.Help &&
		slices.Equal(d.Labels, o.Labels) &&
		slices.Equal(d.Buckets, o.Buckets)
}

type series struct {
	labelValues []string

	mu sync.Mutex
	// count is the counter value, or the number of histogram observations.
	count uint64
	sum   float64
	// buckets[i] counts observations <= def.Buckets[i]; +Inf is count.
	buckets []uint64
}

type family struct {
	def    Definition
	index  map[string]*series
	series []*series
}

// Registry holds counters and histograms keyed by label values.
// Observations are safe for concurrent use; Register is meant for startup.
type Registry struct {
	mu        sync.RWMutex
	families  []*family
	byName    map[string]*family
	maxSeries int
	sealed    atomic.Bool
}

type Option func(*Registry)

// WithMaxSeries caps the number of series per metric. Zero or less disables the cap.
func WithMaxSeries(n int) Option {
	return func(r *Registry) {
		r.maxSeries = n
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:    make(map[string]*family),
		maxSeries: DefaultMaxSeries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Register(def Definition) error {
	def, err := normalizeDefinition(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[def.Name]; ok {
		if existing.def.equal(def) {
			return nil
		}
		return fmt.Errorf("%w: %q already registered with a different shape", ErrConfiguration, def.Name)
	}
	if r.sealed.Load() {
		return fmt.Errorf("%w: %q registered after first observation", ErrConfiguration, def.Name)
	}

	f := &family{def: def, index: make(map[string]*series)}
	r.families = append(r.families, f)
	r.byName[def.Name] = f
	return nil
}

// MustRegister panics if any definition fails to register.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

func normalizeDefinition(def Definition) (Definition, error) {
	if def.Name == "" {
		return def, fmt.Errorf("%w: empty metric name", ErrConfiguration)
	}

	seen := make(map[string]struct{}, len(def.Labels))
	for _, l := range def.Labels {
		if l == "" || l == "le" {
			return def, fmt.Errorf("%w: %q has reserved or empty label %q", ErrConfiguration, def.Name, l)
		}
		if _, dup := seen[l]; dup {
			return def, fmt.Errorf("%w: %q has duplicate label %q", ErrConfiguration, def.Name, l)
		}
		seen[l] = struct{}{}
	}
	def.Labels = slices.Clone(def.Labels)

	switch def.Kind {
	case KindCounter:
		def.Buckets = nil
	case KindHistogram:
		buckets := def.Buckets
		if len(buckets) == 0 {
			buckets = prometheus.DefBuckets
		}
		buckets = slices.Clone(buckets)
		if math.IsInf(buckets[len(buckets)-1], +1) {
			buckets = buckets[:len(buckets)-1]
		}
		for i, b := range buckets {
			if math.IsNaN(b) || (i > 0 && b <= buckets[i-1]) {
				return def, fmt.Errorf("%w: %q buckets must be strictly ascending", ErrConfiguration, def.Name)
			}
		}
		def.Buckets = buckets
	default:
		return def, fmt.Errorf("%w: %q has unknown kind %d", ErrConfiguration, def.Name, def.Kind)
	}

	return def, nil
}

// ObserveCounter adds amount to the counter series identified by labelValues.
func (r *Registry) ObserveCounter(name string, labelValues []string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative counter increment %d for %q", ErrInvalidValue, amount, name)
	}

	s, _, err := r.lookup(name, KindCounter, labelValues)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.count += uint64(amount)
	s.mu.Unlock()
	return nil
}

// ObserveHistogram records value into every bucket whose bound is >= value,
// along with the count and sum, as one update.
func (r *Registry) ObserveHistogram(name string, labelValues []string, value float64) error {
	if math.IsNaN(value) {
		return fmt.Errorf("%w: NaN observation for %q", ErrInvalidValue, name)
	}

	s, f, err := r.lookup(name, KindHistogram, labelValues)
	if err != nil {
		return err
	}

	// Bounds are ascending, so the buckets to bump form a suffix.
	first, _ := slices.BinarySearch(f.def.Buckets, value)

	s.mu.Lock()
	for i := first; i < len(s.buckets); i++ {
		s.buckets[i]++
	}
	s.count++
	s.sum += value
	s.mu.Unlock()
	return nil
}

func (r *Registry) lookup(name string, kind Kind, labelValues []string) (*series, *family, error) {
	if !r.sealed.Load() {
		r.sealed.Store(true)
	}

	r.mu.RLock()
	f, ok := r.byName[name]
	if !ok {
		r.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	if f.def.Kind != kind {
		r.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %q is a %s", ErrUnknownMetric, name, f.def.Kind)
	}
	if len(labelValues) != len(f.def.Labels) {
		r.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %q expects %d values, got %d",
			ErrLabelMismatch, name, len(f.def.Labels), len(labelValues))
	}

	key := seriesKey(labelValues)
	s, ok := f.index[key]
	r.mu.RUnlock()
	if ok {
		return s, f, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := f.index[key]; ok {
		return s, f, nil
	}
	if r.maxSeries > 0 && len(f.series) >= r.maxSeries {
		return nil, nil, fmt.Errorf("%w: %q has %d series", ErrSeriesLimit, name, len(f.series))
	}

	s = &series{labelValues: slices.Clone(labelValues)}
	if kind == KindHistogram {
		s.buckets = make([]uint64, len(f.def.Buckets))
	}
	f.index[key] = s
	f.series = append(f.series, s)
	return s, f, nil
}

func seriesKey(values []string) string {
	return strings.Join(values, "\xff")
}
