package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/unixpickle/dist-render/collcomm/rpccomm"
	"github.com/unixpickle/dist-render/frame"
	"github.com/unixpickle/dist-render/imageio"
	"github.com/unixpickle/dist-render/render"
	"github.com/unixpickle/dist-render/simulator"
	"github.com/unixpickle/essentials"
	"github.com/urfave/cli"
)

// Simulate renders a frame on the simulator.
func Simulate(ctx *cli.Context) error {
	cfg, opts, err := frameSetup(ctx, 0)
	if err != nil {
		return err
	}
	res, err := render.Simulate(cfg, render.SimOptions{
		Options: opts,
		Network: simulator.NewLinkNetwork(ctx.Float64("rate"), ctx.Float64("latency")),
		Timeout: ctx.Float64("timeout"),
		Seed:    ctx.Int64("seed"),
	})
	if err != nil {
		return err
	}
	logStats(ctx, res.Timing)
	logger.Infof("simulated frame finished at virtual time %g", res.Time)
	return nil
}

// RunCoordinator renders a frame as rank 0 of a gRPC group.
func RunCoordinator(ctx *cli.Context) error {
	cfg, opts, err := frameSetup(ctx, 0)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ctx.String("listen"))
	if err != nil {
		return essentials.AddCtx("listen", err)
	}
	comm, err := rpccomm.NewCoordinator(lis, rpccomm.Config{
		Size:    cfg.Size,
		Timeout: ctx.Duration("timeout"),
	})
	if err != nil {
		return err
	}
	defer comm.Close()

	coord := &render.Coordinator{Options: opts}
	res, err := coord.Run(comm, cfg, frame.NewBuffer(cfg.Width, cfg.Height))
	if err != nil {
		return err
	}
	logStats(ctx, res.Timing)
	return nil
}

// RunWorker takes part in a gRPC group as a worker.
func RunWorker(ctx *cli.Context) error {
	cfg, opts, err := frameSetup(ctx, ctx.Int("rank"))
	if err != nil {
		return err
	}
	if cfg.IsCoordinator() {
		return fmt.Errorf("rank 0 must run the coordinator command")
	}
	comm, err := rpccomm.Dial(context.Background(), ctx.String("coordinator"), cfg.Rank, rpccomm.Config{
		Size:    cfg.Size,
		Timeout: ctx.Duration("timeout"),
	})
	if err != nil {
		return err
	}
	defer comm.Close()

	worker := &render.Worker{Options: opts}
	return worker.Run(comm, cfg)
}

// Bench prints how long simulated frames take for a range
// of group sizes and networks.
func Bench(ctx *cli.Context) error {
	type network struct {
		Latency float64
		Rate    float64
	}
	networks := []network{
		{Latency: 1e-4, Rate: 1.25e8},
		{Latency: 1e-3, Rate: 1.25e7},
		{Latency: 0.1, Rate: 1e6},
	}
	sizes := []int{1, 2, 4, 8, 16}
	width, height := ctx.Int("width"), ctx.Int("height")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetHeader([]string{"Procs", "Latency", "NIC rate", "Sequential", "Strips", "C-to-C"})

	for _, nw := range networks {
		for _, size := range sizes {
			row := []string{
				strconv.Itoa(size),
				strconv.FormatFloat(nw.Latency, 'f', -1, 64),
				strconv.FormatFloat(nw.Rate, 'E', -1, 64),
			}
			var ratio float64
			for _, mode := range []frame.Mode{frame.None, frame.StaticStripsVertical} {
				cfg := frame.Config{Width: width, Height: height, Mode: mode, Size: size}
				res, err := render.Simulate(cfg, render.SimOptions{
					Options: render.Options{Saver: discardSaver{}, Out: io.Discard},
					Network: simulator.NewLinkNetwork(nw.Rate, nw.Latency),
				})
				if err != nil {
					return err
				}
				row = append(row, fmt.Sprintf("%f", res.Time))
				ratio = res.Timing.Ratio()
			}
			row = append(row, fmt.Sprintf("%.3f", ratio))
			table.Append(row)
		}
	}
	table.Render()
	return nil
}

// ListModes prints every partitioning mode.
func ListModes(ctx *cli.Context) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Number", "Name", "Implemented"})
	for _, mode := range frame.Modes() {
		_, ok := render.Lookup(mode)
		table.Append([]string{strconv.Itoa(int(mode)), mode.String(), strconv.FormatBool(ok)})
	}
	table.Render()
	return nil
}

func frameSetup(ctx *cli.Context, rank int) (frame.Config, render.Options, error) {
	mode, err := frame.ParseMode(ctx.String("mode"))
	if err != nil {
		return frame.Config{}, render.Options{}, err
	}
	format, err := imageio.ParseFormat(ctx.String("format"))
	if err != nil {
		return frame.Config{}, render.Options{}, err
	}
	cfg := frame.Config{
		Width:  ctx.Int("width"),
		Height: ctx.Int("height"),
		Mode:   mode,
		Rank:   rank,
		Size:   ctx.Int("size"),
	}
	if err := cfg.Validate(); err != nil {
		return frame.Config{}, render.Options{}, err
	}
	opts := render.Options{
		Saver: &imageio.Writer{Dir: ctx.String("out"), Format: format},
	}
	return cfg, opts, nil
}

func logStats(ctx *cli.Context, timing *render.Timing) {
	if timing != nil && ctx.Bool("stats") {
		logger.Noticef("frame statistics\n%s", timing.Table())
	}
}

type discardSaver struct{}

func (discardSaver) Name(cfg frame.Config) string {
	return cfg.Mode.String()
}

func (discardSaver) Save(name string, buf *frame.Buffer, cfg frame.Config) error {
	return nil
}
