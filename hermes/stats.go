package hermes

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bsc-ssrg/hermes/cmn/nlog"
)

// engineStats tracks per-engine counters via prometheus/client_golang,
// exposed through httpdebug.go's /metrics endpoint. Options.StatsOnTeardown
//
// dumps a final snapshot through the logging sink on Close.
//
// Each engine owns a private *prometheus.Registry rather than registering
// against the package-global DefaultRegisterer: a process that builds more
// than one Engine on the same transport (a client and a server in the same
// binary, or simply two tests in the same package) would otherwise hit a
// duplicate-registration panic the moment the second engine starts.
type engineStats struct {
	registry *prometheus.Registry

	posts      prometheus.Counter
	broadcasts prometheus.Counter
	timeouts   prometheus.Counter
	reposts    prometheus.Counter
	cancels    prometheus.Counter
	bulkOK     prometheus.Counter
	bulkFailed prometheus.Counter
	dispatched prometheus.Counter
}

func newEngineStats(transport string) *engineStats {
	lbl := prometheus.Labels{"transport": transport}
	ns := "hermes"
	s := &engineStats{
		registry:   prometheus.NewRegistry(),
		posts:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "posts_total", ConstLabels: lbl}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "broadcasts_total", ConstLabels: lbl}),
		timeouts:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "timeouts_total", ConstLabels: lbl}),
		reposts:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "reposts_total", ConstLabels: lbl}),
		cancels:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "cancels_total", ConstLabels: lbl}),
		bulkOK:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "bulk_transfers_ok_total", ConstLabels: lbl}),
		bulkFailed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "bulk_transfers_failed_total", ConstLabels: lbl}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "dispatched_total", ConstLabels: lbl}),
	}
	s.registry.MustRegister(s.posts, s.broadcasts, s.timeouts, s.reposts, s.cancels, s.bulkOK, s.bulkFailed, s.dispatched)
	return s
}

func (s *engineStats) logFinal() {
	nlog.Infof("hermes: final stats: posts=%s broadcasts=%s timeouts=%s reposts=%s dispatched=%s",
		counterValue(s.posts), counterValue(s.broadcasts), counterValue(s.timeouts), counterValue(s.reposts), counterValue(s.dispatched))
}

func counterValue(c prometheus.Counter) string {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return "?"
	}
	return m.GetCounter().String()
}
