package emotion

import (
	"reflect"
	"testing"
)

func TestFormatReason(t *testing.T) {
	tests := []struct {
		name         string
		contributors map[string]float64
		want         string
	}{
		{name: "empty", contributors: nil, want: ""},
		{name: "single", contributors: map[string]float64{"happy": 62.5}, want: "happy(62.5%): (+5)"},
		{
			name:         "ordered by share then name",
			contributors: map[string]float64{"neutral": 20, "surprise": 20, "happy": 55},
			want:         "happy(55.0%): (+5), neutral(20.0%): (+3), surprise(20.0%): (+3)",
		},
		{name: "unknown emotion", contributors: map[string]float64{"contempt": 30}, want: "contempt(30.0%): (+0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatReason(tt.contributors); got != tt.want {
				t.Fatalf("FormatReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReasonEmotions(t *testing.T) {
	got := ReasonEmotions("happy(55.0%): (+5), neutral(20.0%): (+3)")
	want := []string{"happy", "neutral"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReasonEmotions() = %v, want %v", got, want)
	}
	if got := ReasonEmotions("  "); got != nil {
		t.Fatalf("expected nil for blank reason, got %v", got)
	}
}

func TestClamp(t *testing.T) {
	for in, want := range map[float64]float64{-3: 0, 0: 0, 55.5: 55.5, 100: 100, 104: 100} {
		if got := Clamp(in); got != want {
			t.Fatalf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}
