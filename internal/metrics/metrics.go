package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "invoice"

// Fallback reasons
const (
	ReasonError     = "error"
	ReasonShortText = "short_text"
)

// Recorder records extraction metrics. A nil *Recorder is valid and records
// nothing, so collaborators never need to check for it.
type Recorder struct {
	extractions *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New creates a recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Invoices extracted, by text source method.",
		}, []string{"method"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_fallbacks_total",
			Help:      "Direct text extractions abandoned in favour of OCR, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time to extract one invoice.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	for _, c := range []prometheus.Collector{r.extractions, r.fallbacks, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveExtraction counts one completed extraction.
func (r *Recorder) ObserveExtraction(method string, d time.Duration) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(method).Inc()
	r.duration.Observe(d.Seconds())
}

// OCRFallback counts one OCR fallback.
func (r *Recorder) OCRFallback(reason string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(reason).Inc()
}
