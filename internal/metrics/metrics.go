// Package metrics exposes Prometheus collectors for the streamer client
// and a background sampler of process/host resource usage.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Registry wraps every Prometheus collector this client reports.
type Registry struct {
	MessagesReceived  prometheus.Counter
	MessagesDelivered prometheus.Counter
	HandlerErrors     prometheus.Counter
	RequestsSent      prometheus.Counter
	ResponseErrors    *prometheus.CounterVec
	Backlogged        prometheus.Gauge

	RelayConnected  prometheus.Gauge
	RelayReconnects prometheus.Counter
	RelayPublished  prometheus.Counter
	RelayErrors     *prometheus.CounterVec

	CPUPercent    prometheus.Gauge
	MemoryPercent prometheus.Gauge
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	return &Registry{
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamer_messages_received_total",
			Help: "Total number of data frames received from the gateway.",
		}),
		MessagesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamer_messages_delivered_total",
			Help: "Total number of data entries successfully dispatched to handlers.",
		}),
		HandlerErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamer_handler_errors_total",
			Help: "Total number of handler errors raised during dispatch.",
		}),
		RequestsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamer_requests_sent_total",
			Help: "Total number of requests sent to the gateway.",
		}),
		ResponseErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamer_response_errors_total",
			Help: "Total number of non-zero or malformed responses, by kind.",
		}, []string{"kind"}),
		Backlogged: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamer_backlog_depth",
			Help: "Number of data frames currently buffered awaiting a pending response.",
		}),
		RelayConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamer_relay_connected",
			Help: "Whether the relay's NATS connection is up (1) or down (0).",
		}),
		RelayReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamer_relay_reconnects_total",
			Help: "Total number of relay reconnections.",
		}),
		RelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamer_relay_published_total",
			Help: "Total number of data entries published to the relay.",
		}),
		RelayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamer_relay_errors_total",
			Help: "Total number of relay errors, by kind.",
		}, []string{"kind"}),
		CPUPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamer_process_cpu_percent",
			Help: "Smoothed host CPU utilization percentage sampled via gopsutil.",
		}),
		MemoryPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamer_process_memory_percent",
			Help: "Host memory utilization percentage sampled via gopsutil.",
		}),
	}
}

// Handler serves the Prometheus exposition endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// SetRelayConnected, IncrementRelayReconnects, IncrementRelayPublished, and
// RecordRelayError implement relay.Metrics.
func (r *Registry) SetRelayConnected(connected bool) {
	if connected {
		r.RelayConnected.Set(1)
	} else {
		r.RelayConnected.Set(0)
	}
}

func (r *Registry) IncrementRelayReconnects()       { r.RelayReconnects.Inc() }
func (r *Registry) IncrementRelayPublished()        { r.RelayPublished.Inc() }
func (r *Registry) RecordRelayError(kind string)    { r.RelayErrors.WithLabelValues(kind).Inc() }
func (r *Registry) RecordResponseError(kind string) { r.ResponseErrors.WithLabelValues(kind).Inc() }

// IncrementRequestsSent, IncrementMessagesReceived, IncrementMessagesDelivered,
// IncrementHandlerErrors, SetBacklogDepth, and RecordResponseError (above)
// implement session.Metrics; IncrementMessagesReceived, SetBacklogDepth, and
// RecordResponseError also implement the narrower correlator.Metrics.
func (r *Registry) IncrementRequestsSent()      { r.RequestsSent.Inc() }
func (r *Registry) IncrementMessagesReceived()  { r.MessagesReceived.Inc() }
func (r *Registry) IncrementMessagesDelivered() { r.MessagesDelivered.Inc() }
func (r *Registry) IncrementHandlerErrors()     { r.HandlerErrors.Inc() }
func (r *Registry) SetBacklogDepth(n int)       { r.Backlogged.Set(float64(n)) }

// SampleSystem runs until ctx is done, periodically refreshing CPU and
// memory gauges via gopsutil using exponential smoothing to damp spikes.
func (r *Registry) SampleSystem(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var smoothedCPU float64
	const alpha = 0.3

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
				if smoothedCPU == 0 {
					smoothedCPU = percents[0]
				} else {
					smoothedCPU = alpha*percents[0] + (1-alpha)*smoothedCPU
				}
				r.CPUPercent.Set(smoothedCPU)
			}
			if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
				r.MemoryPercent.Set(vm.UsedPercent)
			}
		}
	}
}
