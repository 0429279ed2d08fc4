package metrics

import (
	"errors"

	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics/keyword"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var MetricRegisterErrorMessage = "failed to register metric collector"

// Meter records contention and lifecycle events of the primitives.
type Meter interface {
	IncParked(mode string)
	IncWoken(mode string, n int)
	IncViolation(op string)
	IncDestroyed()
	IncAborted()
	IncOp(op string)
	IncRequest(path, status string)
	NewResponseTimeTimer(path string) *prometheus.Timer
}

type Metrics struct {
	parkedCounter      *prometheus.CounterVec
	wokenCounter       *prometheus.CounterVec
	violationsCounter  *prometheus.CounterVec
	destroyedCounter   prometheus.Counter
	abortsCounter      prometheus.Counter
	opsCounter         *prometheus.CounterVec
	requestsCounter    *prometheus.CounterVec
	responseTimeMsHist *prometheus.HistogramVec
}

// Default is the process-wide meter. Collectors are updated whether or not
// they have been registered, so the hot paths never check for it.
var Default = New()

func New() *Metrics {
	return &Metrics{
		parkedCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.MutexParkedMetricName,
				Help: "Number of goroutines parked on a mutex.",
			},
			[]string{"mode"},
		),
		wokenCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.MutexWokenMetricName,
				Help: "Number of parked goroutines woken by a mutex release.",
			},
			[]string{"mode"},
		),
		violationsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.ContractViolationsMetricName,
				Help: "Number of detected contract violations (each one is followed by a panic).",
			},
			[]string{"op"},
		),
		destroyedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.PayloadsDestroyedMetricName,
			Help: "Number of payloads destroyed by the last strong release.",
		}),
		abortsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.RefcountAbortsMetricName,
			Help: "Number of refcount overflow aborts.",
		}),
		opsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.SoakOpsMetricName,
				Help: "Number of soak operations by kind.",
			},
			[]string{"op"},
		),
		requestsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.TotalHttpRequestsMetricName,
				Help: "Number of all requests.",
			},
			[]string{"path", "status"},
		),
		responseTimeMsHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: keyword.HttpResponseTimeMsMetricName,
			Help: "Duration of HTTP requests.",
		}, []string{"path"}),
	}
}

// Register exposes the collectors through reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.parkedCounter,
		m.wokenCounter,
		m.violationsCounter,
		m.destroyedCounter,
		m.abortsCounter,
		m.opsCounter,
		m.requestsCounter,
		m.responseTimeMsHist,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			log.Err(err).Msg(MetricRegisterErrorMessage)
			return errors.New(MetricRegisterErrorMessage)
		}
	}
	return nil
}

func (m *Metrics) IncParked(mode string) {
	m.parkedCounter.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncWoken(mode string, n int) {
	if n > 0 {
		m.wokenCounter.WithLabelValues(mode).Add(float64(n))
	}
}

func (m *Metrics) IncViolation(op string) {
	m.violationsCounter.WithLabelValues(op).Inc()
}

func (m *Metrics) IncDestroyed() {
	m.destroyedCounter.Inc()
}

func (m *Metrics) IncAborted() {
	m.abortsCounter.Inc()
}

func (m *Metrics) IncOp(op string) {
	m.opsCounter.WithLabelValues(op).Inc()
}

func (m *Metrics) IncRequest(path, status string) {
	m.requestsCounter.WithLabelValues(path, status).Inc()
}

func (m *Metrics) NewResponseTimeTimer(path string) *prometheus.Timer {
	return prometheus.NewTimer(m.responseTimeMsHist.WithLabelValues(path))
}
