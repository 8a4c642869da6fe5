package render

import (
	"fmt"
	"io"
	"testing"

	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/dist-render/simulator"
)

// RunStrategyTests runs a battery of tests on the Strategy
// registered for a mode, checking that simulated groups of
// many sizes produce exactly the sequentially rendered
// frame.
func RunStrategyTests(t *testing.T, mode frame.Mode) {
	for _, numRanks := range []int{1, 2, 3, 5, 8} {
		for _, dims := range [][2]int{{1, 1}, {4, 2}, {5, 1}, {7, 3}, {16, 9}} {
			for _, randomized := range []bool{false, true} {
				width, height := dims[0], dims[1]
				testName := fmt.Sprintf("W=%d,H=%d,P=%d,Random=%v", width, height, numRanks, randomized)
				t.Run(testName, func(t *testing.T) {
					cfg := frame.Config{Width: width, Height: height, Mode: mode, Size: numRanks}

					var network simulator.Network
					if randomized {
						network = simulator.RandomNetwork{MaxDelay: 0.01}
					} else {
						network = simulator.NewLinkNetwork(1e6, 1e-3)
					}

					saver := &recordingSaver{}
					res, err := Simulate(cfg, SimOptions{
						Options: Options{Shader: patternShader{}, Saver: saver, Out: io.Discard},
						Network: network,
					})
					if err != nil {
						t.Fatal(err)
					}

					verifyFrame(t, res.Buffer, referenceFrame(cfg, patternShader{}))
					verifyTiming(t, cfg, res.Timing)
					if len(saver.names) != 1 || saver.names[0] != res.Name {
						t.Errorf("expected one save of %s but got %v", res.Name, saver.names)
					}
				})
			}
		}
	}
}

// referenceFrame shades every pixel in order on one rank.
func referenceFrame(cfg frame.Config, shader Shader) *frame.Buffer {
	buf := frame.NewBuffer(cfg.Width, cfg.Height)
	for row := 0; row < cfg.Height; row++ {
		for col := 0; col < cfg.Width; col++ {
			buf.Set(row, col, shader.Shade(cfg, row, col))
		}
	}
	return buf
}

func verifyFrame(t *testing.T, actual, expected *frame.Buffer) {
	if len(actual.Pix) != len(expected.Pix) {
		t.Fatalf("frame has %d samples but expected %d", len(actual.Pix), len(expected.Pix))
	}
	for i, x := range expected.Pix {
		if actual.Pix[i] != x {
			pixel := i / 3
			t.Errorf("pixel (%d, %d) channel %d: expected %f but got %f",
				pixel/expected.Width, pixel%expected.Width, i%3, x, actual.Pix[i])
			return
		}
	}
}

func verifyTiming(t *testing.T, cfg frame.Config, timing *Timing) {
	if timing == nil {
		t.Fatal("missing timing")
	}
	if timing.Computation <= 0 {
		t.Errorf("computation time should be positive: %f", timing.Computation)
	}
	if timing.Communication < 0 {
		t.Errorf("communication time should not be negative: %f", timing.Communication)
	}
	if timing.Ratio() < 0 {
		t.Errorf("ratio should not be negative: %f", timing.Ratio())
	}
	if cfg.Size == 1 || cfg.Mode == frame.None {
		if timing.Communication != 0 || timing.Ratio() != 0 {
			t.Errorf("expected no communication but got %f (ratio %f)",
				timing.Communication, timing.Ratio())
		}
	}

	var columns int
	for _, r := range timing.Ranks {
		columns += r.Columns
	}
	if columns != cfg.Width {
		t.Errorf("ranks cover %d columns but frame has %d", columns, cfg.Width)
	}
}

// patternShader gives every channel of every pixel a
// distinct value.
type patternShader struct{}

func (patternShader) Shade(cfg frame.Config, row, col int) frame.Color {
	idx := float64(row*cfg.Width + col)
	return frame.Color{idx + 1, -idx - 0.5, float64(row) + float64(col)/1000}
}

type recordingSaver struct {
	names []string
	bufs  []*frame.Buffer
}

func (r *recordingSaver) Name(cfg frame.Config) string {
	return fmt.Sprintf("%s-%dx%d-%d", cfg.Mode, cfg.Width, cfg.Height, cfg.Size)
}

func (r *recordingSaver) Save(name string, buf *frame.Buffer, cfg frame.Config) error {
	r.names = append(r.names, name)
	r.bufs = append(r.bufs, buf)
	return nil
}
