package main

import (
	"github.com/Carmen-Shannon/oxy-volume/config"
	"github.com/Carmen-Shannon/oxy-volume/log"
	"github.com/urfave/cli"
)

func setupLogging(ctx *cli.Context, cfg *config.Config) {
	log.SetLevel(log.ParseLevel(cfg.Logging.Level))

	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// loadConfig reads the global --config file and sets up logging from it.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	setupLogging(ctx, cfg)
	return cfg, nil
}
