package render

import (
	"fmt"
	"io"
	"os"

	"github.com/unixpickle/dist-render/collcomm"
	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/dist-render/imageio"
	"github.com/unixpickle/dist-render/shade"
)

// Options are the collaborators shared by the coordinator
// and worker entry points.
type Options struct {
	// Shader defaults to shade.DefaultScene().
	Shader Shader

	// Saver defaults to an imageio.Writer in the working
	// directory.
	Saver Saver

	// Out receives the report lines. Defaults to
	// os.Stdout.
	Out io.Writer
}

func (o *Options) shader() Shader {
	if o.Shader == nil {
		return shade.DefaultScene()
	}
	return o.Shader
}

func (o *Options) saver() Saver {
	if o.Saver == nil {
		return &imageio.Writer{}
	}
	return o.Saver
}

func (o *Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// Result describes a frame finished by a Coordinator.
type Result struct {
	// Name is the identifier the frame was saved under.
	Name string

	// Elapsed is the time from dispatch until the frame
	// was ready to save.
	Elapsed float64

	// Timing is nil if the mode is unsupported.
	Timing *Timing

	Unsupported bool
}

// Coordinator runs rank 0.
type Coordinator struct {
	Options
}

// Run renders one frame into buf, which must be sized for
// cfg, and then saves it. Whatever buf held before is
// overwritten.
//
// An unsupported mode is reported but is not an error;
// the untouched buffer is still saved.
func (c *Coordinator) Run(comm collcomm.Comm, cfg frame.Config, buf *frame.Buffer) (*Result, error) {
	if err := checkGroup(comm, cfg); err != nil {
		return nil, err
	}
	if !cfg.IsCoordinator() {
		return nil, fmt.Errorf("%w: coordinator must be rank 0, not %d", frame.ErrInvalidConfig, cfg.Rank)
	}
	if len(buf.Pix) != cfg.Samples() || buf.Width != cfg.Width || buf.Height != cfg.Height {
		return nil, fmt.Errorf("buffer is %dx%d with %d samples: %w",
			buf.Width, buf.Height, len(buf.Pix), ErrPayloadSize)
	}
	out := c.out()
	res := &Result{}

	start := comm.Clock()
	if strategy, ok := Lookup(cfg.Mode); ok {
		env := &Env{Comm: comm, Config: cfg, Shader: c.shader()}
		timing, err := strategy.Coordinate(env, buf)
		if err != nil {
			return nil, fmt.Errorf("%s coordinator: %w", cfg.Mode, err)
		}
		timing.Report(out)
		logger.Debugf("%s frame statistics\n%s", cfg.Mode, timing.Table())
		res.Timing = timing
	} else {
		fmt.Fprintf(out, "This mode (%d) is not currently implemented.\n", int(cfg.Mode))
		res.Unsupported = true
	}
	res.Elapsed = comm.Clock() - start
	fmt.Fprintf(out, "Execution Time: %g seconds\n\n", res.Elapsed)

	saver := c.saver()
	res.Name = saver.Name(cfg)
	fmt.Fprintf(out, "Image will be saved to: %s\n", res.Name)
	if err := saver.Save(res.Name, buf, cfg); err != nil {
		return nil, err
	}
	logger.Infof("saved %dx%d frame to %s", cfg.Width, cfg.Height, res.Name)
	return res, nil
}

// Worker runs any rank other than 0.
type Worker struct {
	Options
}

// Run takes part in rendering one frame.
//
// An unsupported mode is reported but is not an error.
func (w *Worker) Run(comm collcomm.Comm, cfg frame.Config) error {
	if err := checkGroup(comm, cfg); err != nil {
		return err
	}
	strategy, ok := Lookup(cfg.Mode)
	if !ok {
		fmt.Fprintf(w.out(), "This mode (%d) is not currently implemented. Process: %d\n",
			int(cfg.Mode), cfg.Rank)
		return nil
	}
	env := &Env{Comm: comm, Config: cfg, Shader: w.shader()}
	if err := strategy.Work(env); err != nil {
		return fmt.Errorf("%s worker %d: %w", cfg.Mode, cfg.Rank, err)
	}
	return nil
}

func checkGroup(comm collcomm.Comm, cfg frame.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Size != comm.Size() || cfg.Rank != comm.Rank() {
		return fmt.Errorf("%w: config is rank %d of %d but comm is rank %d of %d",
			frame.ErrInvalidConfig, cfg.Rank, cfg.Size, comm.Rank(), comm.Size())
	}
	return nil
}
