package hotkeys

import (
	"sort"
	"testing"
)

func TestIgnoreMasks(t *testing.T) {
	tests := []struct {
		name  string
		locks []uint16
		want  []uint16
	}{
		{"caps only", []uint16{2}, []uint16{0, 2}},
		{"caps and numlock", []uint16{2, 16}, []uint16{0, 2, 16, 18}},
		{"missing scroll lock", []uint16{2, 16, 0}, []uint16{0, 2, 16, 18}},
		{"numlock shares caps mask", []uint16{2, 2}, []uint16{0, 2}},
		{"all three", []uint16{2, 16, 128}, []uint16{0, 2, 16, 18, 128, 130, 144, 146}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ignoreMasks(tt.locks...)
			sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
			if len(got) != len(tt.want) {
				t.Fatalf("ignoreMasks(%v) = %v, want %v", tt.locks, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ignoreMasks(%v) = %v, want %v", tt.locks, got, tt.want)
				}
			}
		})
	}
}
