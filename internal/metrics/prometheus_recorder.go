package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "halo"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requests        *prom.CounterVec
	requestDuration *prom.HistogramVec
	decisions       *prom.CounterVec
	reloads         *prom.CounterVec
	configVersion   prom.Gauge
	compositorCalls *prom.HistogramVec
	menuVisible     prom.Gauge
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs the daemon metrics and registers them,
// along with Go runtime and process collectors, on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ipc_requests_total",
			Help:      "IPC requests by command and response status",
		}, []string{"command", "status"}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "ipc_request_duration_seconds",
			Help:      "Time spent serving IPC requests",
			Buckets:   prom.DefBuckets,
		}, []string{"command"}),
		decisions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_or_raise_decisions_total",
			Help:      "Run-or-raise decisions by action",
		}, []string{"action"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reload attempts by result",
		}, []string{"result"}),
		configVersion: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "config_version",
			Help:      "Version of the configuration currently in effect",
		}),
		compositorCalls: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compositor_call_duration_seconds",
			Help:      "Latency of compositor queries by backend, operation and result",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"backend", "op", "result"}),
		menuVisible: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "menu_visible",
			Help:      "1 while the menu is shown",
		}),
	}
	reg.MustRegister(pr.requests, pr.requestDuration, pr.decisions, pr.reloads, pr.configVersion, pr.compositorCalls, pr.menuVisible)
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return pr
}

func (p *PrometheusRecorder) ObserveRequest(command, status string, d time.Duration) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(command, status).Inc()
	p.requestDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDecision(action string) {
	if p == nil {
		return
	}
	p.decisions.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) IncConfigReload(result ReloadResult) {
	if p == nil {
		return
	}
	p.reloads.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetConfigVersion(version uint64) {
	if p == nil {
		return
	}
	p.configVersion.Set(float64(version))
}

func (p *PrometheusRecorder) ObserveCompositorCall(backend, op string, d time.Duration, err error) {
	if p == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.compositorCalls.WithLabelValues(backend, op, result).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetMenuVisible(visible bool) {
	if p == nil {
		return
	}
	v := 0.0
	if visible {
		v = 1
	}
	p.menuVisible.Set(v)
}
