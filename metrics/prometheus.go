// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vechain/posledger/log"
)

const namespace = "posledger"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics installs the Prometheus provider. Calling it
// again keeps the already installed one.
func InitializePrometheusMetrics() {
	if _, ok := active.(*promProvider); !ok {
		active = &promProvider{}
	}
}

// promProvider caches one meter per name, since the default registry
// refuses a second collector with the same name.
type promProvider struct {
	meters sync.Map
}

// getOrCreate returns the meter stored under name, building and caching it on a miss.
func getOrCreate[T any](p *promProvider, name string, build func() T) T {
	if item, ok := p.meters.Load(name); ok {
		return item.(T)
	}
	item, _ := p.meters.LoadOrStore(name, build())
	return item.(T)
}

func (p *promProvider) counter(name string) CountMeter {
	return getOrCreate(p, name, func() CountMeter {
		return &promCountMeter{register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
		}))}
	})
}

func (p *promProvider) counterVec(name string, labels []string) CountVecMeter {
	return getOrCreate(p, name, func() CountVecMeter {
		return &promCountVecMeter{register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
		}, labels))}
	})
}

func (p *promProvider) gauge(name string) GaugeMeter {
	return getOrCreate(p, name, func() GaugeMeter {
		return &promGaugeMeter{register(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
		}))}
	})
}

func (p *promProvider) gaugeVec(name string, labels []string) GaugeVecMeter {
	return getOrCreate(p, name, func() GaugeVecMeter {
		return &promGaugeVecMeter{register(prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
		}, labels))}
	})
}

func (p *promProvider) histogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return getOrCreate(p, name, func() HistogramVecMeter {
		bounds := make([]float64, 0, len(buckets))
		for _, b := range buckets {
			bounds = append(bounds, float64(b))
		}
		return &promHistogramVecMeter{register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   bounds,
		}, labels))}
	})
}

func (p *promProvider) handler() http.Handler {
	return promhttp.Handler()
}

// register adds c to the default registry. A duplicate registration is
// logged and the new collector is still returned so callers never get nil.
func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		logger.Warn("unable to register metric", "err", err)
	}
	return c
}

type promHistogramVecMeter struct {
	histogram *prometheus.HistogramVec
}

func (c *promHistogramVecMeter) ObserveWithLabels(i int64, labels map[string]string) {
	c.histogram.With(labels).Observe(float64(i))
}

type promCountMeter struct {
	counter prometheus.Counter
}

func (c *promCountMeter) Add(i int64) {
	c.counter.Add(float64(i))
}

type promCountVecMeter struct {
	counter *prometheus.CounterVec
}

func (c *promCountVecMeter) AddWithLabel(i int64, labels map[string]string) {
	c.counter.With(labels).Add(float64(i))
}

type promGaugeMeter struct {
	gauge prometheus.Gauge
}

func (c *promGaugeMeter) Add(i int64) {
	c.gauge.Add(float64(i))
}

func (c *promGaugeMeter) Set(i int64) {
	c.gauge.Set(float64(i))
}

type promGaugeVecMeter struct {
	gauge *prometheus.GaugeVec
}

func (c *promGaugeVecMeter) AddWithLabel(i int64, labels map[string]string) {
	c.gauge.With(labels).Add(float64(i))
}

func (c *promGaugeVecMeter) SetWithLabel(i int64, labels map[string]string) {
	c.gauge.With(labels).Set(float64(i))
}
