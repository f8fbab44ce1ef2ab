package monitoring

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stageLabel   = "stage"
	outcomeLabel = "outcome"
)

// Pipeline stages counted by PointsTotal.
const (
	StageCandidate = "candidate"
	StageKept      = "kept"
	StageMerged    = "merged"
	StageTruncated = "truncated"
	StageWritten   = "written"
)

// Per-source outcomes counted by SourcesTotal.
const (
	OutcomeQueried = "queried"
	OutcomeCulled  = "culled"
	OutcomeFailed  = "failed"
)

var (
	PointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointexport_points_total",
		Help: "Points seen by each export stage.",
	}, []string{
		stageLabel,
	})

	SourcesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointexport_sources_total",
		Help: "Sources handled by the export pipeline, by outcome.",
	}, []string{
		outcomeLabel,
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pointexport_run_duration_seconds",
		Help:    "Wall time of one pipeline run.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	})
)

// InstrumentPoints adds n to the counter of stage.
func InstrumentPoints(stage string, n int) {
	if n <= 0 {
		return
	}
	PointsTotal.With(prometheus.Labels{stageLabel: stage}).Add(float64(n))
}

// InstrumentSource counts one source outcome.
func InstrumentSource(outcome string) {
	SourcesTotal.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// InstrumentRun records the duration of a run that started at start.
func InstrumentRun(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
}

// DumpMetrics logs every pointexport_* series from the default registry.
func DumpMetrics() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "pointexport_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, formatSeries(mf.GetName(), labels, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, formatSeries(mf.GetName()+"_count", labels, float64(h.GetSampleCount())))
				lines = append(lines, formatSeries(mf.GetName()+"_sum", labels, h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		Logf("[metrics] %s", l)
	}
	return nil
}

func formatSeries(name string, labels []string, v float64) string {
	var b strings.Builder
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteString("{")
		b.WriteString(strings.Join(labels, ","))
		b.WriteString("}")
	}
	b.WriteString(" ")
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	return b.String()
}
