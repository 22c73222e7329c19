package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() providerAuth.MetricsSnapshot
	AuditStats() providerAuth.AuditStats
}

// PrometheusExporter renders engine metrics in Prometheus text format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter reads from engine on every scrape.
func NewPrometheusExporter(engine *providerAuth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource reads from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves the current metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when neither metrics nor audit
// have recorded anything.
//
// Login, refresh and lockout counters are rendered as labelled families
// keyed by ledger outcome and failure reason. Audit delivery is one family
// keyed by outcome and delivery result.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	audit := p.source.AuditStats()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 &&
		len(audit.Delivered) == 0 && len(audit.Dropped) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, fam := range internaldefs.FamilyDefs {
		writeHeader(&b, fam.Name, fam.Help, "counter")
		for _, s := range fam.Series {
			writeSample(&b, fam.Name, snapshot.Counters[s.ID],
				internaldefs.LabelOutcome, s.Outcome, internaldefs.LabelReason, s.Reason)
		}
	}

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		writeSample(&b, def.Name, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeHeader(&b, internaldefs.AuditFamily, internaldefs.AuditFamilyHelp, "counter")
	for _, o := range internaldefs.AuditOutcomes {
		outcome := internaldefs.OutcomeLabel(o)
		writeSample(&b, internaldefs.AuditFamily, audit.Delivered[o],
			internaldefs.LabelOutcome, outcome, internaldefs.LabelDelivery, "delivered")
		writeSample(&b, internaldefs.AuditFamily, audit.Dropped[o],
			internaldefs.LabelOutcome, outcome, internaldefs.LabelDelivery, "dropped")
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

// writeSample writes one sample line. labels alternate name and value.
func writeSample(b *strings.Builder, name string, value uint64, labels ...string) {
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i := 0; i+1 < len(labels); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(labels[i])
			b.WriteString("=\"")
			b.WriteString(escapeLabel(labels[i+1]))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	bucket := name + "_bucket"
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, bucket, cumulative[i], "le", le)
	}
	writeSample(b, name+"_count", cumulative[len(cumulative)-1])
	// Snapshots carry no sum.
	writeSample(b, name+"_sum", 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	return strings.ReplaceAll(v, "\n", "\\n")
}
