package shaping

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ByLCY/versereel/fonts"
)

func loadFace(t *testing.T, name string) *Face {
	t.Helper()
	data, err := fonts.Load(name)
	if err != nil {
		t.Fatalf("load font: %v", err)
	}
	face, err := ParseFace(data)
	if err != nil {
		t.Fatalf("parse face: %v", err)
	}
	return face
}

func TestVisualRuns(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantRTL bool
		want    []dirRun
	}{
		{"latin first keeps the space on the latin side", "Allah الله", false,
			[]dirRun{{0, 6, false}, {6, 10, true}}},
		{"arabic first draws the latin run on the left", "الله Allah", true,
			[]dirRun{{5, 10, false}, {0, 5, true}}},
		{"digits inside arabic stay left to right", "سورة 112", true,
			[]dirRun{{5, 8, false}, {0, 5, true}}},
		{"pure latin", "Unique", false, []dirRun{{0, 6, false}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runs, rtl, err := visualRuns(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rtl != tc.wantRTL {
				t.Fatalf("rtl = %v, want %v", rtl, tc.wantRTL)
			}
			if len(runs) != len(tc.want) {
				t.Fatalf("runs = %+v, want %+v", runs, tc.want)
			}
			for i := range runs {
				if runs[i] != tc.want[i] {
					t.Fatalf("runs = %+v, want %+v", runs, tc.want)
				}
			}
		})
	}
}

func TestShapeJoinsArabicInVisualOrder(t *testing.T) {
	face := loadFace(t, fonts.DefaultRTL)
	s := New(DefaultOptions())

	isolated, err := s.Shape(face, "ق")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined, err := s.Shape(face, "قل")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !joined.RTL || len(joined.Glyphs) != 2 {
		t.Fatalf("unexpected run: %+v", joined)
	}
	// 视觉顺序：lam 在左，qaf 在右
	first, last := joined.Glyphs[0], joined.Glyphs[len(joined.Glyphs)-1]
	if first.Cluster != 1 || last.Cluster != 0 {
		t.Fatalf("glyphs not in visual order: %+v", joined.Glyphs)
	}
	if last.ID == isolated.Glyphs[0].ID {
		t.Fatalf("qaf followed by lam must use its initial form, got isolated glyph %d", last.ID)
	}
	if joined.Advance <= 0 {
		t.Fatalf("expected positive advance, got %v", joined.Advance)
	}
}

func TestShapeKeepsSpaceBetweenMixedRuns(t *testing.T) {
	line, err := New(DefaultOptions()).Shape(loadFace(t, fonts.DefaultRTL), "Allah الله")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	space := -1
	for i, g := range line.Glyphs {
		if g.Cluster == 5 {
			space = i
		}
	}
	if space < 0 {
		t.Fatalf("space glyph missing: %+v", line.Glyphs)
	}
	for i, g := range line.Glyphs {
		if i < space && g.Cluster >= 5 || i > space && g.Cluster <= 5 {
			t.Fatalf("space must separate the latin and arabic words: %+v", line.Glyphs)
		}
	}
}

func TestShapeHarakat(t *testing.T) {
	face := loadFace(t, fonts.DefaultRTL)
	bare, err := New(DefaultOptions()).Shape(face, "قل")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kept, err := New(DefaultOptions()).Shape(face, "قُلْ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kept.Glyphs) <= len(bare.Glyphs) {
		t.Fatalf("diacritics dropped: %d glyphs vs %d bare", len(kept.Glyphs), len(bare.Glyphs))
	}
	stripped, err := New(Options{}).Shape(face, "قُلْ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stripped.Glyphs) != len(bare.Glyphs) {
		t.Fatalf("expected diacritics removed, got %d glyphs", len(stripped.Glyphs))
	}
	if stripped.Text != "قُلْ" {
		t.Fatalf("logical text must stay unchanged, got %q", stripped.Text)
	}
}

func TestShapeLatinScalesLinearly(t *testing.T) {
	line, err := New(DefaultOptions()).Shape(loadFace(t, fonts.Default), "Dis : Il est Allah")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if line.RTL {
		t.Fatalf("latin line must be left to right")
	}
	for i := 1; i < len(line.Glyphs); i++ {
		if line.Glyphs[i].Cluster < line.Glyphs[i-1].Cluster {
			t.Fatalf("latin glyphs out of order: %+v", line.Glyphs)
		}
	}
	if w20, w40 := line.Width(20), line.Width(40); w20 <= 0 || w40 != 2*w20 {
		t.Fatalf("width must scale with size: %v %v", w20, w40)
	}
}

func TestShapeDegrades(t *testing.T) {
	s := New(DefaultOptions())
	face := loadFace(t, fonts.Default)
	for _, in := range []string{"", "   ", "a\xffb"} {
		if _, err := s.Shape(face, in); !errors.Is(err, ErrDegraded) {
			t.Fatalf("Shape(%q): expected ErrDegraded, got %v", in, err)
		}
	}
	if _, err := s.Shape(nil, "abc"); !errors.Is(err, ErrDegraded) {
		t.Fatalf("expected ErrDegraded without a face, got %v", err)
	}
}

func TestDisplayFallsBackToLogicalText(t *testing.T) {
	line, ok := Display(New(DefaultOptions()), nil, "قل", zap.NewNop())
	if ok || line.Text != "قل" || len(line.Glyphs) != 0 {
		t.Fatalf("expected degraded passthrough, got %+v ok=%v", line, ok)
	}
	line, ok = Display(New(DefaultOptions()), loadFace(t, fonts.Default), "Unique", nil)
	if !ok || len(line.Glyphs) == 0 {
		t.Fatalf("unexpected result %+v ok=%v", line, ok)
	}
}

func TestStripMarks(t *testing.T) {
	if got := StripMarks("قُلْ هُوَ"); got != "قل هو" {
		t.Fatalf("got %q", got)
	}
}
