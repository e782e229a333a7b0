package app

import (
	"testing"
	"time"

	"AIToolNews/internal/config"
)

func TestDigestGate(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	loc := time.FixedZone("JST", 9*3600)
	offHour := time.Date(2026, 1, 29, 15, 0, 0, 0, loc)

	if digestGate(cfg, Options{}, loc).Due(offHour) {
		t.Fatalf("expected hour gate closed at 15:00")
	}
	if !digestGate(cfg, Options{ForceDigest: true}, loc).Due(offHour) {
		t.Fatalf("expected forced digest gate open")
	}
}
