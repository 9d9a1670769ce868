package main

import "testing"

type micRecord struct {
	cycles []uint64
	levels []bool
}

func (r *micRecord) MICEdge(cycle uint64, level bool) {
	r.cycles = append(r.cycles, cycle)
	r.levels = append(r.levels, level)
}

func TestKeyboardMatrixRows(t *testing.T) {
	kb := NewKeyboardMatrix()
	a, _ := LookupKey("a")
	kb.Press(a)

	if got := kb.Read(0xFD); got != 0x1E {
		t.Fatalf("row 1 = %02X, want 1E", got)
	}
	if got := kb.Read(0xFE); got != 0x1F {
		t.Fatalf("row 0 = %02X, want 1F", got)
	}
	// All rows selected: AND of every row.
	if got := kb.Read(0x00); got != 0x1E {
		t.Fatalf("all rows = %02X, want 1E", got)
	}
	kb.Release(a)
	if got := kb.Read(0x00); got != 0x1F {
		t.Fatalf("after release = %02X, want 1F", got)
	}
}

func TestKeyboardLayout(t *testing.T) {
	cases := []struct {
		name string
		row  int
		col  int
	}{
		{"CAPS", 0, 0}, {"Z", 0, 1}, {"V", 0, 4},
		{"G", 1, 4}, {"Q", 2, 0}, {"1", 3, 0}, {"5", 3, 4},
		{"0", 4, 0}, {"6", 4, 4}, {"P", 5, 0}, {"Y", 5, 4},
		{"ENTER", 6, 0}, {"H", 6, 4}, {"SPACE", 7, 0},
		{"SYM", 7, 1}, {"M", 7, 2}, {"B", 7, 4},
	}
	for _, c := range cases {
		k, ok := LookupKey(c.name)
		if !ok {
			t.Fatalf("key %q not found", c.name)
		}
		if k.Row() != c.row || k.Col() != c.col {
			t.Fatalf("key %q at row %d col %d, want %d/%d", c.name, k.Row(), k.Col(), c.row, c.col)
		}
	}
	if _, ok := LookupKey("F1"); ok {
		t.Fatalf("unexpected key F1")
	}
}

func TestULAPortRead(t *testing.T) {
	kb := NewKeyboardMatrix()
	p := NewULAPorts(kb, nil)

	if got := p.In(0xFEFE); got != 0xBF {
		t.Fatalf("idle read = %02X, want BF", got)
	}
	p.SetTapeLevel(true)
	if got := p.In(0xFEFE); got != 0xFF {
		t.Fatalf("EAR high read = %02X, want FF", got)
	}
	kb.Press(KeySpace)
	if got := p.In(0x7FFE); got != 0xFE {
		t.Fatalf("space read = %02X, want FE", got)
	}
	if got := p.In(0x7FFF); got != 0xFF {
		t.Fatalf("odd port = %02X, want FF", got)
	}
}

func TestULAPortWrite(t *testing.T) {
	kb := NewKeyboardMatrix()
	cycle := uint64(1234)
	p := NewULAPorts(kb, func() uint64 { return cycle })
	rec := &micRecord{}
	p.SetMICListener(rec)

	p.Out(0x00FE, 0x05)
	if p.Border() != 5 {
		t.Fatalf("border = %d, want 5", p.Border())
	}
	if p.SpeakerLevel() != 0 {
		t.Fatalf("speaker = %v, want 0", p.SpeakerLevel())
	}
	p.Out(0x00FE, ulaPortEAR|ulaPortMIC|0x02)
	if p.Border() != 2 {
		t.Fatalf("border = %d, want 2", p.Border())
	}
	if p.SpeakerLevel() != 1 {
		t.Fatalf("speaker = %v, want 1", p.SpeakerLevel())
	}
	cycle = 2000
	p.Out(0x00FE, ulaPortEAR)
	p.Out(0x00FE, ulaPortEAR)
	if len(rec.cycles) != 2 || rec.cycles[0] != 1234 || rec.cycles[1] != 2000 || !rec.levels[0] || rec.levels[1] {
		t.Fatalf("mic edges = %v %v", rec.cycles, rec.levels)
	}
	p.Out(0x00FF, 0x07)
	if p.Border() != 0 {
		t.Fatalf("odd port write changed border to %d", p.Border())
	}
}

func TestULAPortTapeLoadingDrivesSpeaker(t *testing.T) {
	p := NewULAPorts(NewKeyboardMatrix(), nil)
	p.Out(0xFE, ulaPortEAR)
	p.SetTapeLoading(true)
	if p.SpeakerLevel() != 0 {
		t.Fatalf("speaker follows EAR bit while loading")
	}
	p.SetTapeLevel(true)
	if p.SpeakerLevel() != 0.75 {
		t.Fatalf("speaker = %v, want 0.75", p.SpeakerLevel())
	}
}

func TestKeyTyperSequence(t *testing.T) {
	kb := NewKeyboardMatrix()
	typer := NewKeyTyper(kb)
	typer.Type("aB")
	if typer.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", typer.Pending())
	}

	a, _ := LookupKey("A")
	b, _ := LookupKey("B")

	typer.Tick()
	if !kb.Pressed(a) {
		t.Fatalf("A not pressed on first tick")
	}
	for i := 1; i < keyTypeHoldFrames; i++ {
		typer.Tick()
	}
	if kb.Pressed(a) {
		t.Fatalf("A still pressed after hold")
	}
	for i := 0; i < keyTypeReleaseFrames; i++ {
		typer.Tick()
	}
	typer.Tick()
	if !kb.Pressed(b) || !kb.Pressed(KeyCaps) {
		t.Fatalf("capital B should press CAPS and B")
	}
	typer.Clear()
	if kb.Pressed(b) || typer.Pending() != 0 {
		t.Fatalf("clear left keys down")
	}
}

func TestKeyTyperSymbols(t *testing.T) {
	c := chordForRune('"')
	p, _ := LookupKey("P")
	if len(c) != 2 || c[0] != KeySym || c[1] != p {
		t.Fatalf("chord for quote = %v", c)
	}
	if chordForRune('~') != nil {
		t.Fatalf("unmapped rune produced a chord")
	}
}
