package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"

	"itemsapi/internal/session"
)

// TextFormat is the media type of the text exposition format.
var TextFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

type PoolStatser interface {
	Stats() session.Stats
}

type CacheStatser interface {
	Stats() (hits, misses uint64, ratio float64)
}

// NewRuntimeRegistry builds a scrape-time registry with Go runtime and process
// collectors, plus connection pool and cache gauges for the sources given.
func NewRuntimeRegistry(pool PoolStatser, cache CacheStatser) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cache != nil {
		registerCacheStats(reg, cache)
	}
	if pool == nil {
		return reg
	}

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_pool_acquired_connections",
			Help: "Connections currently leased to requests",
		}, func() float64 { return float64(pool.Stats().Acquired) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_pool_idle_connections",
			Help: "Idle connections held by the pool",
		}, func() float64 { return float64(pool.Stats().Idle) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_pool_total_connections",
			Help: "Open connections, leased and idle",
		}, func() float64 { return float64(pool.Stats().Total) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "db_pool_max_connections",
			Help: "Configured base size plus overflow",
		}, func() float64 { return float64(pool.Stats().Max) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "db_pool_acquire_timeouts_total",
			Help: "Acquisitions that gave up waiting for a connection",
		}, func() float64 { return float64(pool.Stats().AcquireTimeouts) }),
	)
	return reg
}

func registerCacheStats(reg *prometheus.Registry, cache CacheStatser) {
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "item_cache_hits_total",
			Help: "Item lookups served from the cache",
		}, func() float64 {
			hits, _, _ := cache.Stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "item_cache_misses_total",
			Help: "Item lookups that missed the cache",
		}, func() float64 {
			_, misses, _ := cache.Stats()
			return float64(misses)
		}),
	)
}

// Exposition renders the scrape body: the request metrics snapshot followed by
// the families of an optional extra gatherer.
type Exposition struct {
	core  *Registry
	extra prometheus.Gatherer
}

func NewExposition(core *Registry, extra prometheus.Gatherer) *Exposition {
	return &Exposition{core: core, extra: extra}
}

func (e *Exposition) ContentType() string {
	return string(TextFormat)
}

func (e *Exposition) Expose(w io.Writer) error {
	if err := e.core.WriteText(w); err != nil {
		return err
	}
	if e.extra == nil {
		return nil
	}

	families, err := e.extra.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, TextFormat)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
