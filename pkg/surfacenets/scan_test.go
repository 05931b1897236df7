package surfacenets

import (
	"testing"

	"github.com/chazu/surfnets/pkg/volume"
)

func TestLoadRow(t *testing.T) {
	c := volume.New()
	c.Fill(10)
	// Row (3, 4) at slice x=3 and x+1=4.
	c.Set(3, 4, 0, -1)
	c.Set(3, 4, 31, -5)
	c.Set(4, 4, 1, -7)

	var row rowBuffer
	near, far := loadRow(c.Data, &row, 3, 4)

	if want := uint32(1<<31 | 1); near != want {
		t.Errorf("near mask = %032b, want %032b", near, want)
	}
	if want := uint32(1 << 30); far != want {
		t.Errorf("far mask = %032b, want %032b", far, want)
	}
	if row[0] != -1 || row[1] != 10 || row[3] != -7 || row[62] != -5 {
		t.Errorf("interleaved row = %v", row[:4])
	}
}

func TestUniformColumn(t *testing.T) {
	all := ^uint32(0)
	tests := []struct {
		name           string
		m0, m1, m2, m3 uint32
		want           bool
	}{
		{"all outside", all, all, all, all, true},
		{"all inside", 0, 0, 0, 0, true},
		{"one row flipped", all, all, 0, all, false},
		{"one bit set", 0, 0, 1 << 7, 0, false},
		{"one bit clear", all, all &^ 1, all, all, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniformColumn(tt.m0, tt.m1, tt.m2, tt.m3); got != tt.want {
				t.Errorf("uniformColumn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopBits(t *testing.T) {
	top := uint32(1 << 31)
	if got := topBits(top, 0, top, 0); got != 0b0101 {
		t.Errorf("topBits = %04b, want 0101", got)
	}
	if got := topBits(0, top, 0, top); got != 0b1010 {
		t.Errorf("topBits = %04b, want 1010", got)
	}
}

func TestCrossing(t *testing.T) {
	tests := []struct {
		s0, s1 float32
		want   float32
	}{
		{-10, 10, 0.5},
		{10, -10, 0.5},
		{-1, 3, 0.25},
		{0, 0, 0.5},
		{7, 7, 0.5},
		{10, 5, 1},
		{-5, -10, 0},
	}
	for _, tt := range tests {
		if got := crossing(tt.s0, tt.s1); got != tt.want {
			t.Errorf("crossing(%v, %v) = %v, want %v", tt.s0, tt.s1, got, tt.want)
		}
	}
}
