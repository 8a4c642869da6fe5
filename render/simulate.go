package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/unixpickle/dist-render/collcomm"
	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/dist-render/simulator"
)

// Default simulated network: a gigabit link per rank.
const (
	DefaultRate    = 1.25e8
	DefaultLatency = 1e-4
)

// SimOptions configure a simulated group.
type SimOptions struct {
	Options

	// Network connects the ranks. Defaults to a
	// LinkNetwork with DefaultRate and DefaultLatency.
	Network simulator.Network

	// Timeout is passed to every rank's SimComm.
	Timeout float64

	// Seed fixes the event loop's tie-breaking if it is
	// non-zero.
	Seed int64
}

// A SimResult is the outcome of a simulated frame.
type SimResult struct {
	*Result

	Buffer *frame.Buffer

	// Time is the virtual time at which the last rank
	// finished.
	Time float64
}

// Simulate runs a whole group in-process on a virtual
// clock, with one Goroutine per rank.
//
// If a rank waits forever, the simulator's deadlock error
// is returned.
func Simulate(cfg frame.Config, opts SimOptions) (*SimResult, error) {
	cfg.Rank = 0
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loop := simulator.NewEventLoop()
	if opts.Seed != 0 {
		loop = simulator.NewEventLoopSeed(opts.Seed)
	}
	network := opts.Network
	if network == nil {
		network = simulator.NewLinkNetwork(DefaultRate, DefaultLatency)
	}
	nodes := make([]*simulator.Node, cfg.Size)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}

	shared := opts.Options
	shared.Shader = shared.shader()
	shared.Out = &lockedWriter{w: shared.out()}

	buf := frame.NewBuffer(cfg.Width, cfg.Height)
	errs := make([]error, cfg.Size)
	var result *Result
	collcomm.SpawnComms(loop, network, nodes, func(c *collcomm.SimComm) {
		c.Timeout = opts.Timeout
		rank := c.Rank()
		if rank == 0 {
			coord := &Coordinator{Options: shared}
			result, errs[0] = coord.Run(c, cfg, buf)
		} else {
			worker := &Worker{Options: shared}
			errs[rank] = worker.Run(c, cfg.WithRank(rank))
		}
	})
	if err := loop.Run(); err != nil {
		return nil, fmt.Errorf("simulate %s: %w", cfg.Mode, err)
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &SimResult{Result: result, Buffer: buf, Time: loop.Time()}, nil
}

type lockedWriter struct {
	lock sync.Mutex
	w    io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.w.Write(p)
}
