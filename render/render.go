// Package render splits the work of rendering one frame
// across a process group and merges the pieces on the
// coordinator.
//
// Rank 0 runs a Coordinator and every other rank runs a
// Worker. Both look up the frame's partitioning mode in
// the strategy registry, so ranks that agree on a
// frame.Config always run matching halves of the same
// protocol.
package render

import (
	"errors"

	"github.com/unixpickle/dist-render/collcomm"
	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/dist-render/log"
)

var logger = log.New("render")

// ShadeCost is the amount of simulated time it takes to
// shade a single pixel.
const ShadeCost = 1e-6

// ErrPayloadSize is returned when a worker's pixels do not
// cover exactly one frame.
var ErrPayloadSize = errors.New("payload size does not match frame")

// A Shader computes the color of one pixel.
//
// Shade must be deterministic and must not depend on the
// rank calling it, since the same pixel may be shaded by
// different ranks in different modes.
type Shader interface {
	Shade(cfg frame.Config, row, col int) frame.Color
}

// A Saver persists a finished frame.
type Saver interface {
	// Name derives an identifier for the frame's output.
	Name(cfg frame.Config) string

	// Save writes buf under the given name.
	Save(name string, buf *frame.Buffer, cfg frame.Config) error
}

// An Env is everything a Strategy needs on one rank.
type Env struct {
	Comm   collcomm.Comm
	Config frame.Config
	Shader Shader
}

// shadeSpan shades every row of a column span into buf at
// the span's absolute offsets.
func (e *Env) shadeSpan(buf *frame.Buffer, span frame.Span) {
	if span.Len() == 0 {
		return
	}
	for row := 0; row < e.Config.Height; row++ {
		for col := span.Start; col < span.End; col++ {
			buf.Set(row, col, e.Shader.Shade(e.Config, row, col))
		}
	}
	e.Comm.Compute(ShadeCost * float64(span.Len()*e.Config.Height))
}
