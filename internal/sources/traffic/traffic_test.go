package traffic

import (
	"context"
	"testing"
)

func TestSimulated(t *testing.T) {
	var p Provider = NewSimulated()
	info, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Status != "moderate" || info.CongestionLevel != 45 || info.Incidents != 2 ||
		info.AvgSpeedKmh != 42 || info.RoadsMonitored != 15 {
		t.Errorf("unexpected info: %+v", info)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Current(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
