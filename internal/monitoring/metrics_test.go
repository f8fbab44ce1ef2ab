package monitoring

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentPoints(t *testing.T) {
	c := PointsTotal.With(prometheus.Labels{stageLabel: StageKept})
	before := testutil.ToFloat64(c)
	InstrumentPoints(StageKept, 5)
	InstrumentPoints(StageKept, 0)
	if got := testutil.ToFloat64(c) - before; got != 5 {
		t.Errorf("kept delta = %v, want 5", got)
	}
}

func TestInstrumentSource(t *testing.T) {
	c := SourcesTotal.With(prometheus.Labels{outcomeLabel: OutcomeCulled})
	before := testutil.ToFloat64(c)
	InstrumentSource(OutcomeCulled)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("culled delta = %v, want 1", got)
	}
}

func TestDumpMetrics(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	InstrumentPoints(StageWritten, 3)
	InstrumentRun(time.Now())

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		if len(v) > 0 {
			lines = append(lines, v[0].(string))
		}
	})
	if err := DumpMetrics(); err != nil {
		t.Fatalf("DumpMetrics() error = %v", err)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"pointexport_points_total{stage=written}",
		"pointexport_run_duration_seconds_count",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("dump missing %q:\n%s", want, joined)
		}
	}
}
