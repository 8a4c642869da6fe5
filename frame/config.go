// Package frame describes a single frame shared by every
// rank of a rendering group: its dimensions, how it is
// partitioned, and the buffers that hold its pixels.
package frame

import (
	"errors"
	"fmt"
)

// DefaultTag is the message tag used for a frame's worker
// payloads when none is configured.
const DefaultTag = 1

// ErrInvalidConfig is wrapped by every error returned from
// Config.Validate.
var ErrInvalidConfig = errors.New("frame: invalid config")

// Config is agreed on by every rank before rendering and
// never changes while a frame is in progress.
type Config struct {
	// Frame dimensions in pixels.
	Width  int
	Height int

	// Mode selects the partitioning strategy.
	Mode Mode

	// Rank is this process's position in the group, and
	// Size is the number of processes in the group.
	// Rank 0 is the coordinator.
	Rank int
	Size int

	// Tag labels the messages that belong to this frame.
	// A zero Tag is treated as DefaultTag.
	Tag int
}

// Validate checks the invariants every rank relies on.
func (c Config) Validate() error {
	if c.Width < 1 {
		return fmt.Errorf("%w: width %d", ErrInvalidConfig, c.Width)
	}
	if c.Height < 1 {
		return fmt.Errorf("%w: height %d", ErrInvalidConfig, c.Height)
	}
	if c.Size < 1 {
		return fmt.Errorf("%w: group size %d", ErrInvalidConfig, c.Size)
	}
	if c.Rank < 0 || c.Rank >= c.Size {
		return fmt.Errorf("%w: rank %d outside [0, %d)", ErrInvalidConfig, c.Rank, c.Size)
	}
	return nil
}

// IsCoordinator reports whether the config belongs to
// rank 0.
func (c Config) IsCoordinator() bool {
	return c.Rank == 0
}

// Samples is the number of channel samples in a full
// frame, 3*Width*Height.
func (c Config) Samples() int {
	return 3 * c.Width * c.Height
}

// MessageTag returns Tag, or DefaultTag if Tag is unset.
func (c Config) MessageTag() int {
	if c.Tag == 0 {
		return DefaultTag
	}
	return c.Tag
}

// WithRank returns a copy of c for a different rank.
func (c Config) WithRank(rank int) Config {
	c.Rank = rank
	return c
}
