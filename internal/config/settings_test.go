package config

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"tmplq/internal/apperr"
)

func TestRuntime_UpdateAppliesValidBatch(t *testing.T) {
	rt := NewRuntime(DefaultSettings())

	got, err := rt.Update(map[string]any{
		"queue_capacity":      float64(3),
		"history_capacity":    float64(7),
		"processing_delay_ms": map[string]any{"min": float64(5), "max": float64(15)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := DefaultSettings()
	want.QueueCapacity = 3
	want.HistoryCapacity = 7
	want.ProcessingDelay = DelayRange{Min: 5, Max: 15}

	if got != want {
		t.Errorf("Update() = %+v, want %+v", got, want)
	}
	if rt.Get() != want {
		t.Errorf("Get() = %+v, want %+v", rt.Get(), want)
	}
}

func TestRuntime_UpdatePartialDelayKeepsOtherBound(t *testing.T) {
	rt := NewRuntime(DefaultSettings())

	got, err := rt.Update(map[string]any{
		"processing_delay_ms": map[string]any{"max": float64(4000)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProcessingDelay != (DelayRange{Min: 500, Max: 4000}) {
		t.Errorf("unexpected delay %+v", got.ProcessingDelay)
	}
}

func TestRuntime_UpdateIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name        string
		patch       map[string]any
		wantDetails []string
	}{
		{
			name: "unknown key alongside valid key",
			patch: map[string]any{
				"queue_capacity": float64(5),
				"colour":         "blue",
			},
			wantDetails: []string{"colour"},
		},
		{
			name: "several invalid keys are all listed",
			patch: map[string]any{
				"queue_capacity":   float64(0),
				"history_capacity": 2.5,
				"bogus":            true,
			},
			wantDetails: []string{"bogus", "history_capacity", "queue_capacity"},
		},
		{
			name: "delay min not below max",
			patch: map[string]any{
				"processing_delay_ms": map[string]any{"min": float64(100), "max": float64(100)},
			},
			wantDetails: []string{"processing_delay_ms"},
		},
		{
			name: "delay bounds past int range",
			patch: map[string]any{
				"processing_delay_ms": map[string]any{"min": json.Number("9446744073709"), "max": json.Number("27446744073709")},
			},
			wantDetails: []string{"processing_delay_ms."},
		},
		{
			name: "delay max above cap",
			patch: map[string]any{
				"processing_delay_ms": map[string]any{"max": json.Number("10000000000000")},
			},
			wantDetails: []string{"processing_delay_ms"},
		},
		{
			name: "delay max one over an hour",
			patch: map[string]any{
				"processing_delay_ms": map[string]any{"max": float64(MaxProcessingDelayMs + 1)},
			},
			wantDetails: []string{"processing_delay_ms"},
		},
		{
			name: "delay of the wrong shape",
			patch: map[string]any{
				"processing_delay_ms": float64(10),
			},
			wantDetails: []string{"processing_delay_ms"},
		},
		{
			name:  "empty patch",
			patch: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewRuntime(DefaultSettings())

			_, err := rt.Update(tt.patch)
			if !apperr.Is(err, apperr.BadRequest) {
				t.Fatalf("expected bad_request, got %v", err)
			}
			if rt.Get() != DefaultSettings() {
				t.Errorf("settings changed after rejected update: %+v", rt.Get())
			}

			var details []string
			if e, ok := err.(*apperr.Error); ok {
				details = e.Details
			}
			if len(details) != len(tt.wantDetails) {
				t.Fatalf("details = %v, want %d entries", details, len(tt.wantDetails))
			}
			for i, key := range tt.wantDetails {
				if !strings.HasPrefix(details[i], key) {
					t.Errorf("details[%d] = %q, want prefix %q", i, details[i], key)
				}
			}
		})
	}
}

func TestRuntime_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	rt := NewRuntime(DefaultSettings())

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_, _ = rt.Update(map[string]any{
				"processing_delay_ms": map[string]any{"min": float64(n), "max": float64(n + 1)},
			})
		}(i)
		go func() {
			defer wg.Done()
			d := rt.Get().ProcessingDelay
			if d.Min >= d.Max {
				t.Errorf("observed inconsistent delay range %+v", d)
			}
		}()
	}
	wg.Wait()
}

func TestDelayRange_Bounds(t *testing.T) {
	lo, hi := DelayRange{Min: 5, Max: 1500}.Bounds()
	if lo.Milliseconds() != 5 || hi.Milliseconds() != 1500 {
		t.Errorf("Bounds() = %v, %v", lo, hi)
	}
}

func TestDelayRange_BoundsAtCap(t *testing.T) {
	rt := NewRuntime(DefaultSettings())

	got, err := rt.Update(map[string]any{
		"processing_delay_ms": map[string]any{"min": json.Number("0"), "max": json.Number("3600000")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lo, hi := got.ProcessingDelay.Bounds()
	if lo != 0 || hi != time.Hour {
		t.Errorf("Bounds() = %v, %v, want 0s, 1h", lo, hi)
	}
}

func TestSettings_ValidateRejectsOversizedDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay DelayRange
	}{
		{"max above cap", DelayRange{Min: 0, Max: MaxProcessingDelayMs + 1}},
		{"both above cap", DelayRange{Min: 2 * MaxProcessingDelayMs, Max: 3 * MaxProcessingDelayMs}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.ProcessingDelay = tt.delay
			err := s.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "must not exceed") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
