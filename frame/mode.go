package frame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Mode is a partitioning scheme.
//
// The numeric values are part of the command-line surface
// and of diagnostics, so they must not be reordered.
type Mode int

const (
	None Mode = iota
	StaticStripsHorizontal
	StaticStripsVertical
	StaticBlocks
	StaticCyclesHorizontal
	StaticCyclesVertical
	Dynamic
)

var modeNames = map[Mode]string{
	None:                   "none",
	StaticStripsHorizontal: "static_strips_horizontal",
	StaticStripsVertical:   "static_strips_vertical",
	StaticBlocks:           "static_blocks",
	StaticCyclesHorizontal: "static_cycles_horizontal",
	StaticCyclesVertical:   "static_cycles_vertical",
	Dynamic:                "dynamic",
}

// Modes lists every named mode in numeric order.
func Modes() []Mode {
	res := make([]Mode, 0, len(modeNames))
	for m := range modeNames {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})
	return res
}

// String returns the mode's name, or "mode(N)" for
// numbers that have no name.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts a mode name (case-insensitive, with
// either dashes or underscores) or a number.
//
// Numbers without a name are accepted so that they can be
// reported as unsupported later on.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Mode(n), nil
	}
	key := strings.ReplaceAll(strings.ToLower(s), "-", "_")
	if key == "sequential" {
		return None, nil
	}
	for m, name := range modeNames {
		if name == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("frame: unknown partitioning mode %q", s)
}
