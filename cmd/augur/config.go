package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/augur/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration as TOML",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   "augur.toml",
						Usage:   "File to write",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: runConfigShow,
			},
			{
				Name:  "validate",
				Usage: "Validate the configuration file",
				Description: `Validates the file given with --config, or the first config file found in
the standard locations (augur.{toml,yaml,yml,json} and .augur.* in . and .augur/).`,
				Action: runConfigValidate,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	path := c.String("output")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := config.DefaultConfig().EncodeTOML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	status(c.App.Writer).Success("Wrote default configuration to %s", path)
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	data, err := cfg.EncodeTOML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		status(c.App.ErrWriter).Error("Configuration validation failed:")
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if path := c.String("config"); path != "" {
		status(c.App.Writer).Success("Configuration valid: %s", path)
	} else {
		status(c.App.Writer).Success("Configuration valid")
	}
	return nil
}
