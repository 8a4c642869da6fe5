package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/unixpickle/dist-render/collcomm"
	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/dist-render/simulator"
)

func TestSequential(t *testing.T) {
	RunStrategyTests(t, frame.None)
}

func TestVerticalStrips(t *testing.T) {
	RunStrategyTests(t, frame.StaticStripsVertical)
}

func TestSequentialTiming(t *testing.T) {
	cfg := frame.Config{Width: 6, Height: 4, Mode: frame.None, Size: 3}
	res, err := Simulate(cfg, testOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	expected := ShadeCost * 24
	if math.Abs(res.Timing.Computation-expected) > 1e-12 {
		t.Errorf("expected computation %e but got %e", expected, res.Timing.Computation)
	}
	if res.Timing.Communication != 0 || res.Timing.Ratio() != 0 {
		t.Errorf("sequential mode should not communicate: %+v", res.Timing)
	}
}

func TestVerticalStripsScenarios(t *testing.T) {
	scenarios := []struct {
		width, height, size int
		columns             []int
	}{
		{width: 4, height: 2, size: 2, columns: []int{2, 2}},
		{width: 5, height: 1, size: 2, columns: []int{3, 2}},
		{width: 7, height: 3, size: 1, columns: []int{7}},
		{width: 2, height: 2, size: 3, columns: []int{2, 0, 0}},
	}
	for _, s := range scenarios {
		t.Run(fmt.Sprintf("W=%d,H=%d,P=%d", s.width, s.height, s.size), func(t *testing.T) {
			cfg := frame.Config{
				Width:  s.width,
				Height: s.height,
				Mode:   frame.StaticStripsVertical,
				Size:   s.size,
			}
			res, err := Simulate(cfg, testOptions(nil))
			if err != nil {
				t.Fatal(err)
			}
			verifyFrame(t, res.Buffer, referenceFrame(cfg, patternShader{}))
			if len(res.Timing.Ranks) != s.size {
				t.Fatalf("expected %d rank timings but got %d", s.size, len(res.Timing.Ranks))
			}
			for i, r := range res.Timing.Ranks {
				if r.Rank != i || r.Columns != s.columns[i] {
					t.Errorf("rank %d: expected %d columns but got %+v", i, s.columns[i], r)
				}
				if i > 0 && s.columns[i] > 0 && r.RenderTime <= 0 {
					t.Errorf("rank %d should report its render time", i)
				}
			}
			if s.size > 1 && res.Timing.Communication <= 0 {
				t.Errorf("expected communication time over a link network: %+v", res.Timing)
			}
		})
	}
}

// TestVerticalStripsMergeCost checks that merging worker
// frames is charged as computation.
func TestVerticalStripsMergeCost(t *testing.T) {
	cfg := frame.Config{Width: 4, Height: 2, Mode: frame.StaticStripsVertical, Size: 2}
	res, err := Simulate(cfg, testOptions(nil))
	if err != nil {
		t.Fatal(err)
	}
	expected := ShadeCost*4 + collcomm.FlopTime*24
	if math.Abs(res.Timing.Computation-expected) > 1e-12 {
		t.Errorf("expected computation %e but got %e", expected, res.Timing.Computation)
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	opts := testOptions(&out)
	cfg := frame.Config{Width: 4, Height: 2, Mode: frame.StaticStripsVertical, Size: 2}
	res, err := Simulate(cfg, opts)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	prefixes := []string{
		"Total Computation Time: ",
		"Total Communication Time: ",
		"C-to-C Ratio: ",
		"Execution Time: ",
		"",
		"Image will be saved to: " + res.Name,
	}
	if len(lines) != len(prefixes) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	for i, prefix := range prefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d should start with %q but is %q", i, prefix, lines[i])
		}
	}
}

func TestUnsupportedModes(t *testing.T) {
	for _, mode := range []frame.Mode{
		frame.StaticStripsHorizontal,
		frame.StaticBlocks,
		frame.StaticCyclesHorizontal,
		frame.StaticCyclesVertical,
		frame.Dynamic,
		frame.Mode(42),
	} {
		t.Run(mode.String(), func(t *testing.T) {
			var out bytes.Buffer
			opts := testOptions(&out)
			saver := opts.Saver.(*recordingSaver)
			cfg := frame.Config{Width: 3, Height: 2, Mode: mode, Size: 3}
			res, err := Simulate(cfg, opts)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Unsupported || res.Timing != nil {
				t.Errorf("expected unsupported result: %+v", res.Result)
			}
			for _, x := range res.Buffer.Pix {
				if x != 0 {
					t.Fatal("buffer should be untouched")
				}
			}
			if len(saver.names) != 1 {
				t.Errorf("expected one save but got %d", len(saver.names))
			}

			text := out.String()
			coordMsg := fmt.Sprintf("This mode (%d) is not currently implemented.\n", int(mode))
			if !strings.Contains(text, coordMsg) {
				t.Errorf("missing coordinator diagnostic in %q", text)
			}
			for rank := 1; rank < 3; rank++ {
				workerMsg := fmt.Sprintf("This mode (%d) is not currently implemented. Process: %d\n",
					int(mode), rank)
				if !strings.Contains(text, workerMsg) {
					t.Errorf("missing diagnostic for rank %d in %q", rank, text)
				}
			}
		})
	}
}

// silentStrategy coordinates like VerticalStrips but its
// workers never send anything.
type silentStrategy struct {
	VerticalStrips
}

func (silentStrategy) Work(env *Env) error {
	return nil
}

// shortStrategy's workers send one sample too few.
type shortStrategy struct {
	VerticalStrips
}

func (shortStrategy) Work(env *Env) error {
	return env.Comm.Send(0, &collcomm.Message{
		Tag:    env.Config.MessageTag(),
		Pixels: make([]float64, env.Config.Samples()-1),
	})
}

const (
	silentMode = frame.Mode(100)
	shortMode  = frame.Mode(101)
)

func init() {
	Register(silentMode, silentStrategy{})
	Register(shortMode, shortStrategy{})
}

func TestSilentWorker(t *testing.T) {
	cfg := frame.Config{Width: 4, Height: 2, Mode: silentMode, Size: 2}

	_, err := Simulate(cfg, testOptions(nil))
	if !errors.Is(err, simulator.ErrDeadlock) {
		t.Errorf("expected deadlock but got %v", err)
	}

	opts := testOptions(nil)
	opts.Timeout = 0.5
	_, err = Simulate(cfg, opts)
	if !errors.Is(err, collcomm.ErrUnresponsive) {
		t.Errorf("expected ErrUnresponsive but got %v", err)
	}
}

func TestPayloadSize(t *testing.T) {
	cfg := frame.Config{Width: 4, Height: 2, Mode: shortMode, Size: 2}
	_, err := Simulate(cfg, testOptions(nil))
	if !errors.Is(err, ErrPayloadSize) {
		t.Errorf("expected ErrPayloadSize but got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := Simulate(frame.Config{Width: 0, Height: 2, Size: 2}, testOptions(nil))
	if !errors.Is(err, frame.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig but got %v", err)
	}

	loop := simulator.NewEventLoop()
	nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
	collcomm.SpawnComms(loop, simulator.RandomNetwork{}, nodes, func(c *collcomm.SimComm) {
		if c.Rank() != 0 {
			return
		}
		cfg := frame.Config{Width: 2, Height: 2, Size: 3}
		coord := &Coordinator{Options: testOptions(nil).Options}
		_, err := coord.Run(c, cfg, frame.NewBuffer(2, 2))
		if !errors.Is(err, frame.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for mismatched size but got %v", err)
		}
		worker := &Worker{Options: testOptions(nil).Options}
		if err := worker.Run(c, frame.Config{Width: 2, Height: 2, Size: 2, Rank: 1}); err == nil {
			t.Error("expected error for mismatched rank")
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

// TestCoordinatorDirtyBuffer makes sure stale pixels in
// the coordinator's buffer never reach the merged frame.
func TestCoordinatorDirtyBuffer(t *testing.T) {
	for _, mode := range []frame.Mode{frame.None, frame.StaticStripsVertical} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := frame.Config{Width: 4, Height: 1, Mode: mode, Size: 2}
			buf := frame.NewBuffer(cfg.Width, cfg.Height)
			for i := range buf.Pix {
				buf.Pix[i] = 7
			}

			opts := testOptions(nil).Options
			loop := simulator.NewEventLoop()
			nodes := []*simulator.Node{simulator.NewNode(), simulator.NewNode()}
			collcomm.SpawnComms(loop, simulator.NewLinkNetwork(1e6, 1e-3), nodes, func(c *collcomm.SimComm) {
				if c.Rank() == 0 {
					coord := &Coordinator{Options: opts}
					if _, err := coord.Run(c, cfg, buf); err != nil {
						t.Error(err)
					}
				} else {
					worker := &Worker{Options: opts}
					if err := worker.Run(c, cfg.WithRank(c.Rank())); err != nil {
						t.Error(err)
					}
				}
			})
			if err := loop.Run(); err != nil {
				t.Fatal(err)
			}
			verifyFrame(t, buf, referenceFrame(cfg, patternShader{}))
		})
	}
}

func TestTimingTable(t *testing.T) {
	timing := &Timing{
		Computation:   2,
		Communication: 1,
		Ranks: []RankTiming{
			{Rank: 0, Columns: 3, RenderTime: 1.5},
			{Rank: 1, Columns: 2, RenderTime: 1.25, WaitTime: 1},
		},
	}
	if timing.Ratio() != 0.5 {
		t.Errorf("expected ratio 0.5 but got %f", timing.Ratio())
	}
	table := timing.Table()
	for _, s := range []string{"Rank", "Wait time", "1.25", "TOTAL"} {
		if !strings.Contains(table, s) {
			t.Errorf("table is missing %q:\n%s", s, table)
		}
	}
}

func testOptions(out io.Writer) SimOptions {
	if out == nil {
		out = io.Discard
	}
	return SimOptions{
		Options: Options{
			Shader: patternShader{},
			Saver:  &recordingSaver{},
			Out:    out,
		},
		Network: simulator.NewLinkNetwork(1e6, 1e-3),
		Seed:    1,
	}
}
