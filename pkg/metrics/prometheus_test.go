package metrics

import (
	"testing"

	"ChartSense/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordFrame("ok")
	r.RecordFrame("ok")
	r.RecordFrame("decode_error")
	r.RecordSignal(models.SideBuy, models.TierPro)
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()

	if got := testutil.ToFloat64(r.framesTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("frames ok = %v", got)
	}
	if got := testutil.ToFloat64(r.signalsTotal.WithLabelValues("BUY", "pro")); got != 1 {
		t.Fatalf("signals = %v", got)
	}
	if got := testutil.ToFloat64(r.activeSessions); got != 1 {
		t.Fatalf("active sessions = %v", got)
	}
}
