package imageio

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/unixpickle/dist-render/frame"
)

func testBuffer() (*frame.Buffer, frame.Config) {
	cfg := frame.Config{Width: 2, Height: 2, Mode: frame.StaticStripsVertical, Size: 4}
	buf := frame.NewBuffer(cfg.Width, cfg.Height)
	buf.Set(0, 0, frame.Color{1, 0, 0})
	buf.Set(0, 1, frame.Color{0, 1, 0})
	buf.Set(1, 0, frame.Color{0, 0, 1})
	buf.Set(1, 1, frame.Color{2, -1, 0.5})
	return buf, cfg
}

func TestWriterName(t *testing.T) {
	w := &Writer{Dir: "out"}
	cfg := frame.Config{Width: 640, Height: 480, Mode: frame.StaticStripsVertical, Size: 4}
	expected := filepath.Join("out", "static_strips_vertical_640x480_4procs.ppm")
	if name := w.Name(cfg); name != expected {
		t.Errorf("expected %s but got %s", expected, name)
	}

	w = &Writer{Format: PNG}
	cfg = frame.Config{Width: 3, Height: 1, Mode: frame.None, Size: 1}
	if name := w.Name(cfg); name != "none_3x1_1procs.png" {
		t.Errorf("unexpected name: %s", name)
	}
}

func TestEncodePPM(t *testing.T) {
	buf, _ := testBuffer()
	var out bytes.Buffer
	if err := EncodePPM(&out, buf); err != nil {
		t.Fatal(err)
	}
	expected := append([]byte("P6\n2 2\n255\n"),
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		255, 0, 128,
	)
	if !bytes.Equal(out.Bytes(), expected) {
		t.Errorf("unexpected PPM data: %v", out.Bytes())
	}
}

func TestSavePNG(t *testing.T) {
	buf, cfg := testBuffer()
	w := &Writer{Dir: t.TempDir(), Format: PNG}
	name := w.Name(cfg)
	if err := w.Save(name, buf, cfg); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds: %v", img.Bounds())
	}
	r, g, b, _ := img.At(1, 0).RGBA()
	if r != 0 || g != 0xffff || b != 0 {
		t.Errorf("unexpected pixel (0, 1): %d %d %d", r, g, b)
	}
}

func TestSaveErrors(t *testing.T) {
	buf, cfg := testBuffer()
	w := &Writer{Dir: filepath.Join(t.TempDir(), "missing")}
	if err := w.Save(w.Name(cfg), buf, cfg); err == nil {
		t.Error("expected error for missing directory")
	}

	cfg.Width = 3
	w = &Writer{Dir: t.TempDir()}
	if err := w.Save(w.Name(cfg), buf, cfg); err == nil {
		t.Error("expected error for mismatched buffer")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("PNG"); err != nil || f != PNG {
		t.Errorf("unexpected result: %v %v", f, err)
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected error")
	}
}
