// Package cmd ...
package cmd

import (
	"context"
	"fmt"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/logger"
	"github.com/Dyastin-0/senddone/settings"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

type app struct {
	settings *settings.Settings
	log      logger.Logger
}

func New() *cli.Command {
	a := &app{log: logger.Nop()}

	return &cli.Command{
		Name:    "senddone",
		Usage:   "send files and folders to peers on the local network",
		Version: core.VERSION,
		Flags:   a.globalFlags(),
		Before:  a.before,
		Action:  rootAction,
		Commands: []*cli.Command{
			a.networksCommand(),
			a.scanCommand(),
			a.listenCommand(),
			a.sendCommand(),
		},
	}
}

func rootAction(ctx context.Context, cmd *cli.Command) error {
	figure := figure.NewFigure("senddone", "", true)
	figure.Print()

	fmt.Println()

	return cli.ShowAppHelp(cmd)
}

func (a *app) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "settings file (default is $HOME/.senddone.yaml)",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "transfer and discovery port",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log to stdout at debug level",
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	s, err := settings.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	if cmd.IsSet("port") {
		s.Port = int(cmd.Int("port"))
	}

	if cmd.Bool("debug") {
		s.Debug = true
	}

	if err := s.Validate(); err != nil {
		return ctx, err
	}

	a.settings = s
	a.log = a.newLogger()

	return ctx, nil
}

func (a *app) newLogger() logger.Logger {
	path := a.settings.LogFile
	if path == "" {
		p, err := logger.LogPath("logs")
		if err != nil {
			return logger.Nop()
		}
		path = p
	}

	l := logger.New()

	if a.settings.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		l.InitMultiWriter(path)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		l.Init(path)
	}

	return l.WithStr("id", a.settings.ID)
}

func (a *app) config() *core.Config {
	cfg := a.settings.Config
	return &cfg
}
