package render

import (
	"fmt"

	"github.com/unixpickle/dist-render/collcomm"
	"github.com/unixpickle/dist-render/frame"
)

// A Strategy is one partitioning scheme, with a half for
// the coordinator and a half for workers.
type Strategy interface {
	// Coordinate runs on rank 0 and leaves the finished
	// frame in buf. Pixels already in buf must not leak
	// into the result.
	Coordinate(env *Env, buf *frame.Buffer) (*Timing, error)

	// Work runs on every other rank.
	Work(env *Env) error
}

var strategies = map[frame.Mode]Strategy{
	frame.None:                 Sequential{},
	frame.StaticStripsVertical: VerticalStrips{},
}

// Register installs a Strategy for a mode, replacing any
// previous one.
//
// It is not safe to call Register while frames are being
// rendered.
func Register(mode frame.Mode, s Strategy) {
	strategies[mode] = s
}

// Lookup finds the Strategy for a mode.
func Lookup(mode frame.Mode) (Strategy, bool) {
	s, ok := strategies[mode]
	return s, ok
}

// Sequential renders the whole frame on the coordinator.
// Workers do nothing.
type Sequential struct{}

func (s Sequential) Coordinate(env *Env, buf *frame.Buffer) (*Timing, error) {
	start := env.Comm.Clock()
	for _, span := range (frame.Whole{Width: env.Config.Width}).Spans(0) {
		env.shadeSpan(buf, span)
	}
	elapsed := env.Comm.Clock() - start
	return &Timing{
		Computation: elapsed,
		Ranks: []RankTiming{
			{Rank: 0, Columns: env.Config.Width, RenderTime: elapsed},
		},
	}, nil
}

func (s Sequential) Work(env *Env) error {
	return nil
}

// VerticalStrips gives every rank an equal strip of
// columns, with any leftover columns going to rank 0.
//
// Workers send a full-size frame that is zero outside
// their strip, and the coordinator sums the frames in
// rank order.
type VerticalStrips struct {
	// Reduce merges a worker frame into the coordinator's
	// frame. If nil, collcomm.Sum is used.
	Reduce collcomm.ReduceFn
}

func (v VerticalStrips) reduce() collcomm.ReduceFn {
	if v.Reduce == nil {
		return collcomm.Sum
	}
	return v.Reduce
}

func (v VerticalStrips) Coordinate(env *Env, buf *frame.Buffer) (*Timing, error) {
	comm := env.Comm
	cfg := env.Config
	strips := frame.Strips{Width: cfg.Width, Procs: comm.Size()}
	tag := cfg.MessageTag()

	// Worker frames are summed into buf, so columns owned
	// by workers must start at zero.
	for i := range buf.Pix {
		buf.Pix[i] = 0
	}

	timing := &Timing{}
	start := comm.Clock()
	var columns int
	for _, span := range strips.Spans(0) {
		env.shadeSpan(buf, span)
		columns += span.Len()
	}
	timing.Computation = comm.Clock() - start
	timing.Ranks = append(timing.Ranks, RankTiming{
		Rank:       0,
		Columns:    columns,
		RenderTime: timing.Computation,
	})

	for rank := 1; rank < comm.Size(); rank++ {
		waitStart := comm.Clock()
		msg, err := comm.Recv(rank, tag)
		if err != nil {
			return nil, err
		}
		wait := comm.Clock() - waitStart
		timing.Communication += wait

		if len(msg.Pixels) != len(buf.Pix) {
			return nil, fmt.Errorf("rank %d sent %d samples for a %d-sample frame: %w",
				rank, len(msg.Pixels), len(buf.Pix), ErrPayloadSize)
		}
		mergeStart := comm.Clock()
		v.reduce()(comm, buf.Pix, msg.Pixels)
		timing.Computation += comm.Clock() - mergeStart

		timing.Ranks = append(timing.Ranks, RankTiming{
			Rank:       rank,
			Columns:    strips.Strip(rank).Len(),
			RenderTime: msg.RenderTime,
			WaitTime:   wait,
		})
		logger.Debugf("merged strip from rank %d after waiting %gs", rank, wait)
	}
	return timing, nil
}

func (v VerticalStrips) Work(env *Env) error {
	comm := env.Comm
	cfg := env.Config
	strips := frame.Strips{Width: cfg.Width, Procs: comm.Size()}

	buf := frame.NewBuffer(cfg.Width, cfg.Height)
	start := comm.Clock()
	for _, span := range strips.Spans(comm.Rank()) {
		env.shadeSpan(buf, span)
	}
	renderTime := comm.Clock() - start

	return comm.Send(0, &collcomm.Message{
		Tag:        cfg.MessageTag(),
		Pixels:     buf.Pix,
		RenderTime: renderTime,
	})
}
