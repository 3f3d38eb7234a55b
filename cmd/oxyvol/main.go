package main

import (
	"os"

	"github.com/Carmen-Shannon/oxy-volume/log"
	"github.com/urfave/cli"
)

var logger = log.New("oxyvol")

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxyvol"
	app.Usage = "stream multi-channel volumes into a layered renderer"
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
		cli.StringFlag{
			Name:  "config, c",
			Value: "oxyvol.yaml",
			Usage: "configuration file, defaults are used if it does not exist",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "demo",
			Usage: "send synthetic volumes through the renderer",
			Description: `
Start one producer per channel. Each producer draws frames from the pipeline's
pool, fills them with an animated XOR pattern and sends them to the renderer,
which grows a layer per channel as new channel ids show up.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "backend",
					Usage: "renderer backend (headless or wgpu), overrides the configuration",
				},
				cli.IntFlag{
					Name:  "channels",
					Usage: "number of producer channels, overrides the configuration",
				},
				cli.IntFlag{
					Name:  "size",
					Usage: "edge length of the cubic volumes, overrides the configuration",
				},
				cli.IntFlag{
					Name:  "frames",
					Usage: "frames per channel, overrides the configuration",
				},
				cli.IntFlag{
					Name:  "bpv",
					Value: 1,
					Usage: "bytes per voxel of the generated volumes (1 or 2)",
				},
				cli.BoolFlag{
					Name:  "analyse",
					Usage: "run the center of mass and intensity processors in front of the renderer",
				},
				cli.BoolFlag{
					Name:  "show",
					Usage: "show the renderer window",
				},
			},
			Action: Demo,
		},
		{
			Name:  "config",
			Usage: "manage the configuration file",
			Subcommands: []cli.Command{
				{
					Name:      "init",
					Usage:     "write a configuration file with default values",
					ArgsUsage: "[path]",
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "force, f",
							Usage: "overwrite an existing file",
						},
					},
					Action: InitConfig,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
