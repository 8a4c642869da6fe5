// Command raytrace renders a frame with a group of
// processes, either simulated in one process or spread
// over the network with gRPC.
package main

import (
	"os"

	"github.com/unixpickle/dist-render/log"
	"github.com/unixpickle/essentials"
	"github.com/urfave/cli"
)

var logger = log.New("raytrace")

func main() {
	app := cli.NewApp()
	app.Name = "raytrace"
	app.Usage = "render a frame across a group of processes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		{
			Name:  "simulate",
			Usage: "render with every rank simulated in this process",
			Description: `
Run the coordinator and every worker as Goroutines on a virtual clock,
connected by a simulated network. Reported times are virtual seconds.`,
			Flags: append(frameFlags(),
				cli.IntFlag{
					Name:   "size, n",
					Value:  4,
					Usage:  "number of ranks",
					EnvVar: "RAYTRACE_SIZE,OMPI_COMM_WORLD_SIZE",
				},
				cli.Float64Flag{
					Name:  "rate",
					Value: 1.25e8,
					Usage: "simulated link rate in bytes per second (0 for instant)",
				},
				cli.Float64Flag{
					Name:  "latency",
					Value: 1e-4,
					Usage: "simulated link latency in seconds",
				},
				cli.Float64Flag{
					Name:  "timeout",
					Usage: "fail if a rank waits this many virtual seconds (0 waits forever)",
				},
				cli.Int64Flag{
					Name:  "seed",
					Usage: "seed for ordering simultaneous events (0 for random)",
				},
			),
			Action: Simulate,
		},
		{
			Name:  "coordinator",
			Usage: "run rank 0 and serve workers over gRPC",
			Flags: append(frameFlags(),
				cli.IntFlag{
					Name:   "size, n",
					Value:  4,
					Usage:  "number of ranks",
					EnvVar: "RAYTRACE_SIZE,OMPI_COMM_WORLD_SIZE",
				},
				cli.StringFlag{
					Name:  "listen",
					Value: ":7420",
					Usage: "address to accept workers on",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "fail if a worker takes longer than this (0 waits forever)",
				},
			),
			Action: RunCoordinator,
		},
		{
			Name:  "worker",
			Usage: "run a worker rank that dials the coordinator",
			Flags: append(frameFlags(),
				cli.IntFlag{
					Name:   "size, n",
					Value:  4,
					Usage:  "number of ranks",
					EnvVar: "RAYTRACE_SIZE,OMPI_COMM_WORLD_SIZE",
				},
				cli.IntFlag{
					Name:   "rank, r",
					Value:  1,
					Usage:  "this worker's rank",
					EnvVar: "RAYTRACE_RANK,OMPI_COMM_WORLD_RANK",
				},
				cli.StringFlag{
					Name:  "coordinator",
					Value: "127.0.0.1:7420",
					Usage: "address of rank 0",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "fail if the coordinator takes longer than this (0 waits forever)",
				},
			),
			Action: RunWorker,
		},
		{
			Name:  "bench",
			Usage: "print a markdown table of simulated frame times",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 320,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 240,
					Usage: "frame height",
				},
			},
			Action: Bench,
		},
		{
			Name:   "modes",
			Usage:  "list partitioning modes",
			Action: ListModes,
		},
	}

	if err := app.Run(os.Args); err != nil {
		essentials.Die(err)
	}
}

func frameFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 640,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 480,
			Usage: "frame height",
		},
		cli.StringFlag{
			Name:  "mode, m",
			Value: "static_strips_vertical",
			Usage: "partitioning mode, by name or number (see the modes command)",
		},
		cli.StringFlag{
			Name:  "out, o",
			Value: ".",
			Usage: "directory to save the frame in",
		},
		cli.StringFlag{
			Name:  "format",
			Value: "ppm",
			Usage: "image format (ppm or png)",
		},
		cli.BoolFlag{
			Name:  "stats",
			Usage: "log a per-rank timing table",
		},
	}
}

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}
	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}
