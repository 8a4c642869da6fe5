package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Timing summarizes where the coordinator spent its time
// while producing a frame.
type Timing struct {
	// Computation is time spent shading and merging.
	Computation float64

	// Communication is time spent blocked waiting for
	// workers.
	Communication float64

	// Ranks has one entry per rank, in rank order.
	Ranks []RankTiming
}

// RankTiming describes one rank's share of a frame.
type RankTiming struct {
	Rank    int
	Columns int

	// RenderTime is the time the rank reported spending
	// on shading.
	RenderTime float64

	// WaitTime is how long the coordinator waited for
	// the rank's result.
	WaitTime float64
}

// Ratio is the communication-to-computation ratio.
// It is 0 whenever there was no communication.
func (t *Timing) Ratio() float64 {
	if t.Communication == 0 {
		return 0
	}
	return t.Communication / t.Computation
}

// Report prints the computation time, communication time
// and ratio, in that order.
func (t *Timing) Report(w io.Writer) {
	fmt.Fprintf(w, "Total Computation Time: %g seconds\n", t.Computation)
	fmt.Fprintf(w, "Total Communication Time: %g seconds\n", t.Communication)
	fmt.Fprintf(w, "C-to-C Ratio: %g\n", t.Ratio())
}

// Table renders the per-rank breakdown.
func (t *Timing) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Rank", "Columns", "Render time", "Wait time"})
	for _, r := range t.Ranks {
		table.Append([]string{
			fmt.Sprintf("%d", r.Rank),
			fmt.Sprintf("%d", r.Columns),
			fmt.Sprintf("%g", r.RenderTime),
			fmt.Sprintf("%g", r.WaitTime),
		})
	}
	table.SetFooter([]string{"", "TOTAL", fmt.Sprintf("%g", t.Computation), fmt.Sprintf("%g", t.Communication)})
	table.Render()
	return buf.String()
}
