// Package imageio saves rendered frames to disk.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/essentials"
)

// A Format is an output file format.
type Format string

const (
	PPM Format = "ppm"
	PNG Format = "png"
)

// ParseFormat accepts "ppm" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PPM, PNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown image format: %s", s)
}

// Writer names and writes frames in one directory.
type Writer struct {
	// Dir is the output directory. Empty means the
	// working directory.
	Dir string

	// Format defaults to PPM.
	Format Format
}

func (w *Writer) format() Format {
	if w.Format == "" {
		return PPM
	}
	return w.Format
}

// Name derives the output path for a frame from its mode,
// dimensions and group size.
func (w *Writer) Name(cfg frame.Config) string {
	name := fmt.Sprintf("%s_%dx%d_%dprocs.%s", cfg.Mode, cfg.Width, cfg.Height, cfg.Size, w.format())
	return filepath.Join(w.Dir, name)
}

// Save writes buf to the file called name.
func (w *Writer) Save(name string, buf *frame.Buffer, cfg frame.Config) (err error) {
	defer essentials.AddCtxTo("save "+name, &err)

	if len(buf.Pix) != cfg.Samples() {
		return fmt.Errorf("buffer has %d samples but frame needs %d", len(buf.Pix), cfg.Samples())
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	bw := bufio.NewWriter(f)
	switch w.format() {
	case PNG:
		err = png.Encode(bw, ToImage(buf))
	default:
		err = EncodePPM(bw, buf)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

// EncodePPM writes a binary (P6) PPM image.
func EncodePPM(w io.Writer, buf *frame.Buffer) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", buf.Width, buf.Height); err != nil {
		return err
	}
	data := make([]byte, len(buf.Pix))
	for i, x := range buf.Pix {
		data[i] = quantize(x)
	}
	_, err := w.Write(data)
	return err
}

// ToImage converts a frame to an 8-bit image.
func ToImage(buf *frame.Buffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for row := 0; row < buf.Height; row++ {
		for col := 0; col < buf.Width; col++ {
			c := buf.At(row, col)
			img.SetRGBA(col, row, color.RGBA{
				R: quantize(c[0]),
				G: quantize(c[1]),
				B: quantize(c[2]),
				A: 0xff,
			})
		}
	}
	return img
}

// quantize clamps a sample to [0, 1] and scales it to a
// byte.
func quantize(x float64) byte {
	return byte(math.Round(math.Max(0, math.Min(1, x)) * 255))
}
