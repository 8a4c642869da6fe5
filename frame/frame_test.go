package frame

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Width: 4, Height: 2, Mode: StaticStripsVertical, Rank: 1, Size: 2}
	if err := valid.Validate(); err != nil {
		t.Fatal(err)
	}
	invalid := []Config{
		{Width: 0, Height: 2, Size: 1},
		{Width: 4, Height: 0, Size: 1},
		{Width: 4, Height: 2, Size: 0},
		{Width: 4, Height: 2, Rank: 2, Size: 2},
		{Width: 4, Height: 2, Rank: -1, Size: 2},
	}
	for i, c := range invalid {
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("config %d: expected ErrInvalidConfig but got %v", i, err)
		}
	}
}

func TestConfigTag(t *testing.T) {
	c := Config{}
	if c.MessageTag() != DefaultTag {
		t.Errorf("unexpected default tag %d", c.MessageTag())
	}
	c.Tag = 7
	if c.MessageTag() != 7 {
		t.Errorf("unexpected tag %d", c.MessageTag())
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"none":                   None,
		"sequential":             None,
		"0":                      None,
		"2":                      StaticStripsVertical,
		"static-strips-vertical": StaticStripsVertical,
		"Static_Strips_Vertical": StaticStripsVertical,
		"dynamic":                Dynamic,
		"17":                     Mode(17),
	}
	for input, expected := range cases {
		actual, err := ParseMode(input)
		if err != nil {
			t.Errorf("%q: %v", input, err)
		} else if actual != expected {
			t.Errorf("%q: expected %v but got %v", input, expected, actual)
		}
	}
	if _, err := ParseMode("diagonal"); err == nil {
		t.Error("expected an error for an unknown name")
	}
}

func TestModeString(t *testing.T) {
	if s := StaticStripsVertical.String(); s != "static_strips_vertical" {
		t.Errorf("unexpected name %q", s)
	}
	if s := Mode(42).String(); s != "mode(42)" {
		t.Errorf("unexpected name %q", s)
	}
	modes := Modes()
	for i, m := range modes {
		if int(m) != i {
			t.Errorf("mode %d out of order: %v", i, m)
		}
	}
}

func TestBufferOffsets(t *testing.T) {
	b := NewBuffer(4, 2)
	if len(b.Pix) != 24 {
		t.Fatalf("unexpected length %d", len(b.Pix))
	}
	b.Set(1, 2, Color{0.25, 0.5, 0.75})
	if off := b.Offset(1, 2); off != 18 {
		t.Errorf("unexpected offset %d", off)
	}
	if b.Pix[18] != 0.25 || b.Pix[19] != 0.5 || b.Pix[20] != 0.75 {
		t.Errorf("unexpected samples %v", b.Pix[18:21])
	}
	if c := b.At(1, 2); c != (Color{0.25, 0.5, 0.75}) {
		t.Errorf("unexpected color %v", c)
	}
	for i, x := range b.Pix {
		if (i < 18 || i > 20) && x != 0 {
			t.Errorf("sample %d should be zero but is %f", i, x)
		}
	}
}
