package otel

import (
	"context"
	"errors"
	"fmt"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/metrics/export/internaldefs"
	"github.com/MrEthical07/providerAuth/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() providerAuth.MetricsSnapshot
	AuditStats() providerAuth.AuditStats
}

// labelledSeries is one outcome/reason point of a family instrument.
type labelledSeries struct {
	id    providerAuth.MetricID
	attrs metric.MeasurementOption
}

type observedFamily struct {
	instrument metric.Int64ObservableCounter
	series     []labelledSeries
}

type observedCounter struct {
	id         providerAuth.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      providerAuth.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type auditSeries struct {
	outcome   store.Outcome
	delivered metric.MeasurementOption
	dropped   metric.MeasurementOption
}

// OTelExporter holds the registered instruments. Close unregisters them.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	families     []observedFamily
	counters     []observedCounter
	histograms   []observedHistogram
	audit        metric.Int64ObservableCounter
	auditSeries  []auditSeries
}

// NewOTelExporter registers instruments on meter that observe engine.
func NewOTelExporter(meter metric.Meter, engine *providerAuth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments that observe source.
// Login, refresh and lockout families become one counter each with outcome
// and reason attributes; audit delivery becomes one counter with outcome and
// delivery attributes.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, fam := range internaldefs.FamilyDefs {
		ins, err := meter.Int64ObservableCounter(fam.Name, metric.WithDescription(fam.Help))
		if err != nil {
			return nil, fmt.Errorf("create family counter %s: %w", fam.Name, err)
		}
		f := observedFamily{instrument: ins, series: make([]labelledSeries, 0, len(fam.Series))}
		for _, s := range fam.Series {
			f.series = append(f.series, labelledSeries{
				id: s.ID,
				attrs: metric.WithAttributes(
					attribute.String(internaldefs.LabelOutcome, s.Outcome),
					attribute.String(internaldefs.LabelReason, s.Reason),
				),
			})
		}
		exporter.families = append(exporter.families, f)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s_count: %w", def.Name, err)
		}
		h.count = count
		observables = append(observables, count)
		exporter.histograms = append(exporter.histograms, h)
	}

	audit, err := meter.Int64ObservableCounter(internaldefs.AuditFamily, metric.WithDescription(internaldefs.AuditFamilyHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit counter: %w", err)
	}
	exporter.audit = audit
	observables = append(observables, audit)
	for _, o := range internaldefs.AuditOutcomes {
		outcome := attribute.String(internaldefs.LabelOutcome, internaldefs.OutcomeLabel(o))
		exporter.auditSeries = append(exporter.auditSeries, auditSeries{
			outcome:   o,
			delivered: metric.WithAttributes(outcome, attribute.String(internaldefs.LabelDelivery, "delivered")),
			dropped:   metric.WithAttributes(outcome, attribute.String(internaldefs.LabelDelivery, "dropped")),
		})
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, s := range f.series {
			observer.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.attrs)
		}
	}
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	stats := e.source.AuditStats()
	for _, s := range e.auditSeries {
		observer.ObserveInt64(e.audit, int64(stats.Delivered[s.outcome]), s.delivered)
		observer.ObserveInt64(e.audit, int64(stats.Dropped[s.outcome]), s.dropped)
	}
	return nil
}

// Close unregisters the callback. It is safe on a nil exporter.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
