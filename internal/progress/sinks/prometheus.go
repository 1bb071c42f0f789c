package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sohogrid/menuscout/internal/progress"
)

// PrometheusSink exports scan progress metrics. It owns the collectors for
// run lifecycle and per-zone discovery counts.
type PrometheusSink struct {
	scansStarted   prometheus.Counter
	scansCompleted *prometheus.CounterVec
	restaurants    *prometheus.CounterVec
	zoneScans      *prometheus.CounterVec
	totalKnown     prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		scansStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "menuscout_scans_started_total",
			Help: "Total scan runs that have started.",
		}),
		scansCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menuscout_scans_completed_total",
			Help: "Total scan runs completed partitioned by result.",
		}, []string{"result"}),
		restaurants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menuscout_restaurants_discovered_total",
			Help: "Newly discovered restaurants partitioned by zone.",
		}, []string{"zone"}),
		zoneScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "menuscout_zone_scans_total",
			Help: "Completed zone scans partitioned by zone.",
		}, []string{"zone"}),
		totalKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "menuscout_known_restaurants",
			Help: "Current number of known restaurants.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.scansStarted,
		s.scansCompleted,
		s.restaurants,
		s.zoneScans,
		s.totalKnown,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe for
// concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageScanStart:
			s.scansStarted.Inc()
		case progress.StageScanDone:
			s.scansCompleted.WithLabelValues("success").Inc()
		case progress.StageScanError:
			s.scansCompleted.WithLabelValues("error").Inc()
		case progress.StageRestaurantFound:
			s.restaurants.WithLabelValues(evt.ZoneID).Inc()
			s.totalKnown.Set(float64(evt.TotalKnown))
		case progress.StageZoneScanComplete:
			s.zoneScans.WithLabelValues(evt.ZoneID).Inc()
			s.totalKnown.Set(float64(evt.TotalKnown))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
