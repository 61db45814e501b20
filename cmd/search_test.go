package cmd

import (
	"testing"

	"github.com/contextforge/recall/internal/config"
)

type fakeFlags struct {
	changed map[string]bool
}

func (f fakeFlags) Changed(name string) bool { return f.changed[name] }

func TestSearchParams(t *testing.T) {
	cfg := &config.Config{RetrievalLimit: 8, RetrievalThreshold: 0.75}

	origLimit, origThreshold := searchLimit, searchThreshold
	defer func() { searchLimit, searchThreshold = origLimit, origThreshold }()
	searchLimit, searchThreshold = 2, 0.1

	tests := []struct {
		name          string
		changed       map[string]bool
		wantLimit     int
		wantThreshold float64
	}{
		{
			name:          "config defaults when no flags set",
			changed:       map[string]bool{},
			wantLimit:     8,
			wantThreshold: 0.75,
		},
		{
			name:          "explicit limit flag wins",
			changed:       map[string]bool{"limit": true},
			wantLimit:     2,
			wantThreshold: 0.75,
		},
		{
			name:          "explicit threshold flag wins",
			changed:       map[string]bool{"threshold": true},
			wantLimit:     8,
			wantThreshold: 0.1,
		},
		{
			name:          "both flags set",
			changed:       map[string]bool{"limit": true, "threshold": true},
			wantLimit:     2,
			wantThreshold: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, threshold := searchParams(cfg, fakeFlags{changed: tt.changed})
			if limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", limit, tt.wantLimit)
			}
			if threshold != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", threshold, tt.wantThreshold)
			}
		})
	}
}
