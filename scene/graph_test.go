package scene

import "testing"

func TestPlanLayersOrder(t *testing.T) {
	p := Plan{Width: 1080, Height: 1920, FPS: 24, Duration: 7, Dim: 0.5, Background: "bg.mp4", Captions: []string{"ar.png", "fr.png"}}
	layers := p.Layers()
	want := []LayerKind{LayerBackground, LayerDim, LayerCaption, LayerCaption}
	if len(layers) != len(want) {
		t.Fatalf("expected %d layers, got %d", len(want), len(layers))
	}
	for i, k := range want {
		if layers[i].Kind != k {
			t.Fatalf("layer %d: expected %v, got %v", i, k, layers[i].Kind)
		}
	}
	if layers[1].Source != "color=c=black@0.50:s=1080x1920:r=24:d=7.000" {
		t.Fatalf("unexpected dim source %s", layers[1].Source)
	}
	if layers[2].Source != "ar.png" || layers[3].Source != "fr.png" {
		t.Fatalf("captions out of order: %+v", layers)
	}

	p.Background, p.Dim = "", 0
	layers = p.Layers()
	if len(layers) != 3 || layers[0].Kind != LayerSolid {
		t.Fatalf("expected solid base without dim, got %+v", layers)
	}
}

func TestPlanBuildValidates(t *testing.T) {
	base := Plan{Width: 1080, Height: 1920, FPS: 24, Duration: 3, Audio: "a.mp3", Output: "o.part.mp4"}
	cases := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{"zero fps", func(p *Plan) { p.FPS = 0 }},
		{"zero duration", func(p *Plan) { p.Duration = 0 }},
		{"no audio", func(p *Plan) { p.Audio = "" }},
		{"no output", func(p *Plan) { p.Output = "" }},
	}
	for _, tc := range cases {
		p := base
		tc.mutate(&p)
		if _, err := p.Args(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	args, err := base.Args()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasPair(args, "-pix_fmt", "yuv420p") || !hasPair(args, "-c:a", "aac") || !hasPair(args, "-r", "24") {
		t.Fatalf("missing output options: %v", args)
	}
}

func TestPartPath(t *testing.T) {
	cases := map[string]string{
		"out/video.mp4": "out/video.part.mp4",
		"video":         "video.part.mp4",
		"a.b/c.mov":     "a.b/c.part.mov",
	}
	for in, want := range cases {
		if got := PartPath(in); got != want {
			t.Fatalf("PartPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestColorSource(t *testing.T) {
	if got := ColorSource("#1a2b3c"); got != "0x1A2B3C" {
		t.Fatalf("got %s", got)
	}
}

func TestParseProgress(t *testing.T) {
	cases := []struct {
		line string
		want float64
		ok   bool
	}{
		{"out_time_us=1500000", 1.5, true},
		{"out_time_ms=2000000", 2.0, true},
		{"out_time=00:00:01.500000", 0, false},
		{"progress=end", 0, false},
		{"out_time_us=N/A", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseProgress(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseProgress(%q) = %v,%v want %v,%v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`{"format":{"duration":"4.872000"}}`, 4.872, true},
		{`{"format":{},"streams":[{"codec_type":"audio","duration":"3.5"},{"codec_type":"video","duration":"4.0"}]}`, 4.0, true},
		{`{"format":{"duration":"N/A"}}`, 0, false},
		{`not json`, 0, false},
	}
	for _, tc := range cases {
		got, err := parseDuration(tc.raw)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("parseDuration(%s) = %v,%v", tc.raw, got, err)
		}
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	b := &tailBuffer{limit: 4}
	b.Write([]byte("abc"))
	b.Write([]byte("defg"))
	if got := b.String(); got != "defg" {
		t.Fatalf("got %q", got)
	}
}
