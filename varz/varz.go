/*
varz provides helpers to create Prometheus metrics with package-qualified
names, all in one registry that Handler serves.

varz, ironically, still doesn't export /varz.  It's /metrics.
*/
package varz

import (
	"fmt"
	"net/http"
	"path"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// callerPackage returns the last element of the package name of the caller
// of the function.  Use a loose heuristic to get that split apart.  If the
// variable is declared in a var block, this will remove the "init" bit.
func callerPackage() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}

	n := path.Base(fn.Name())
	if dot := strings.Index(n, "."); dot != -1 {
		n = n[:dot]
	}
	return n
}

func metricName(pkg, name string) string {
	return fmt.Sprintf("wtapicks_%s_%s", pkg, name)
}

func NewCounter(name, help string) prometheus.Counter {
	return promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: metricName(callerPackage(), name),
		Help: help,
	})
}

func NewCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: metricName(callerPackage(), name),
		Help: help,
	}, labels)
}

func NewHistogram(name, help string) prometheus.Histogram {
	return promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(callerPackage(), name),
		Help:    help,
		Buckets: prometheus.DefBuckets,
	})
}

// Handler serves everything registered through this package.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
