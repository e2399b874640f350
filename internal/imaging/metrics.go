package imaging

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a Transformer and records transform counts and latency.
type Instrumented struct {
	next       Transformer
	transforms *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// Instrument registers the transform metrics on reg and wraps t.
func Instrument(t Transformer, reg prometheus.Registerer) (*Instrumented, error) {
	in := &Instrumented{
		next: t,
		transforms: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "image_transforms_total",
				Help: "Total number of image variant transforms.",
			},
			[]string{"format", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "image_transform_duration_seconds",
				Help:    "Time spent producing one image variant.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),
	}
	if err := reg.Register(in.transforms); err != nil {
		return nil, err
	}
	if err := reg.Register(in.duration); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Instrumented) Open(r io.Reader) (*Source, error) {
	return in.next.Open(r)
}

func (in *Instrumented) Process(src *Source, spec Spec) ([]byte, string, error) {
	start := time.Now()
	b, format, err := in.next.Process(src, spec)
	if err != nil {
		in.transforms.WithLabelValues(spec.String("format"), "error").Inc()
		return nil, "", err
	}
	in.transforms.WithLabelValues(format, "ok").Inc()
	in.duration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	return b, format, nil
}
