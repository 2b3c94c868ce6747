package metrics

import (
	"bufio"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"
)

// seriesCopy is a consistent copy of one series taken under its lock.
type seriesCopy struct {
	labelValues []string
	count       uint64
	sum         float64
	buckets     []uint64
}

type familyCopy struct {
	def    Definition
	series []seriesCopy
}

// copyFamilies copies every registered metric in registration order, series in
// first-observed order. Each histogram copy is a whole bucket/count/sum group.
func (r *Registry) copyFamilies() []familyCopy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]familyCopy, 0, len(r.families))
	for _, f := range r.families {
		fc := familyCopy{def: f.def, series: make([]seriesCopy, 0, len(f.series))}
		for _, s := range f.series {
			s.mu.Lock()
			fc.series = append(fc.series, seriesCopy{
				labelValues: s.labelValues,
				count:       s.count,
				sum:         s.sum,
				buckets:     slices.Clone(s.buckets),
			})
			s.mu.Unlock()
		}
		out = append(out, fc)
	}
	return out
}

// Snapshot copies the current state of every registered metric in registration
// order. Series appear in the order they were first observed. Families without
// series are included with an empty Metric slice. Counter values above 2^53
// lose precision here; WriteText keeps them exact.
func (r *Registry) Snapshot() []*dto.MetricFamily {
	copies := r.copyFamilies()
	out := make([]*dto.MetricFamily, 0, len(copies))
	for _, fc := range copies {
		out = append(out, fc.toProto())
	}
	return out
}

// Gather implements prometheus.Gatherer. Families without series are omitted.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	all := r.Snapshot()
	out := all[:0]
	for _, mf := range all {
		if len(mf.GetMetric()) > 0 {
			out = append(out, mf)
		}
	}
	return out, nil
}

func (fc familyCopy) toProto() *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name:   proto.String(fc.def.Name),
		Help:   proto.String(fc.def.Help),
		Metric: make([]*dto.Metric, 0, len(fc.series)),
	}
	switch fc.def.Kind {
	case KindCounter:
		mf.Type = dto.MetricType_COUNTER.Enum()
	case KindHistogram:
		mf.Type = dto.MetricType_HISTOGRAM.Enum()
	}

	for _, s := range fc.series {
		m := &dto.Metric{Label: labelPairs(fc.def.Labels, s.labelValues)}
		switch fc.def.Kind {
		case KindCounter:
			m.Counter = &dto.Counter{Value: proto.Float64(float64(s.count))}
		case KindHistogram:
			h := &dto.Histogram{
				SampleCount: proto.Uint64(s.count),
				SampleSum:   proto.Float64(s.sum),
				Bucket:      make([]*dto.Bucket, 0, len(s.buckets)+1),
			}
			for i, c := range s.buckets {
				h.Bucket = append(h.Bucket, &dto.Bucket{
					UpperBound:      proto.Float64(fc.def.Buckets[i]),
					CumulativeCount: proto.Uint64(c),
				})
			}
			h.Bucket = append(h.Bucket, &dto.Bucket{
				UpperBound:      proto.Float64(math.Inf(+1)),
				CumulativeCount: proto.Uint64(s.count),
			})
			m.Histogram = h
		}
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

func labelPairs(names, values []string) []*dto.LabelPair {
	pairs := make([]*dto.LabelPair, len(names))
	for i := range names {
		pairs[i] = &dto.LabelPair{Name: proto.String(names[i]), Value: proto.String(values[i])}
	}
	return pairs
}

// WriteText renders a fresh copy in the text exposition format without
// re-sorting series. Counter values are written as exact integers.
func (r *Registry) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, fc := range r.copyFamilies() {
		fc.writeText(bw)
	}
	return bw.Flush()
}

var (
	helpEscaper       = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelValueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)
)

func (fc familyCopy) writeText(w *bufio.Writer) {
	name := fc.def.Name

	w.WriteString("# HELP " + name + " " + helpEscaper.Replace(fc.def.Help) + "\n")
	w.WriteString("# TYPE " + name + " " + fc.def.Kind.String() + "\n")

	for _, s := range fc.series {
		switch fc.def.Kind {
		case KindCounter:
			writeSample(w, name, fc.def.Labels, s.labelValues, "", strconv.FormatUint(s.count, 10))
		case KindHistogram:
			for i, c := range s.buckets {
				writeSample(w, name+"_bucket", fc.def.Labels, s.labelValues,
					formatFloat(fc.def.Buckets[i]), strconv.FormatUint(c, 10))
			}
			writeSample(w, name+"_bucket", fc.def.Labels, s.labelValues, "+Inf", strconv.FormatUint(s.count, 10))
			writeSample(w, name+"_sum", fc.def.Labels, s.labelValues, "", formatFloat(s.sum))
			writeSample(w, name+"_count", fc.def.Labels, s.labelValues, "", strconv.FormatUint(s.count, 10))
		}
	}
}

// writeSample writes one line. A non-empty le adds the bucket bound label.
func writeSample(w *bufio.Writer, name string, labelNames, labelValues []string, le, value string) {
	w.WriteString(name)
	if len(labelNames) > 0 || le != "" {
		w.WriteByte('{')
		for i, ln := range labelNames {
			if i > 0 {
				w.WriteByte(',')
			}
			w.WriteString(ln)
			w.WriteString(`="`)
			w.WriteString(labelValueEscaper.Replace(labelValues[i]))
			w.WriteByte('"')
		}
		if le != "" {
			if len(labelNames) > 0 {
				w.WriteByte(',')
			}
			w.WriteString(`le="`)
			w.WriteString(le)
			w.WriteByte('"')
		}
		w.WriteByte('}')
	}
	w.WriteByte(' ')
	w.WriteString(value)
	w.WriteByte('\n')
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, +1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
