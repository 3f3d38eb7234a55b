package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-volume/config"
	"github.com/urfave/cli"
)

// InitConfig writes a default configuration file.
func InitConfig(ctx *cli.Context) error {
	path := ctx.GlobalString("config")
	if ctx.NArg() > 0 {
		path = ctx.Args().First()
	}

	if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}

	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	logger.Noticef("wrote default configuration to %s", path)
	return nil
}
