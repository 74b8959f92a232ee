package cmd

import (
	"context"
	"fmt"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/progress"
	"github.com/Dyastin-0/senddone/styles"
	"github.com/charmbracelet/huh/spinner"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func (a *app) sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send files and folders to a peer",
		ArgsUsage: "[paths...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "to",
				Aliases: []string{"t"},
				Usage:   "peer address, scan and pick one when empty",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "where the file selector starts",
				Value:   ".",
			},
			networkFlag(),
		},
		Action: a.sendAction,
	}
}

func (a *app) sendAction(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("to")
	if addr == "" {
		picked, err := a.pickDevice(ctx, cmd.String("network"))
		if err != nil {
			return err
		}
		addr = picked
	}

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		selector := NewFileSelector(cmd.String("dir"))
		if err := selector.Run(); err != nil {
			return err
		}
		paths = selector.Paths()
	}

	if len(paths) == 0 {
		fmt.Println(styles.WARN.Render("nothing selected"))
		return nil
	}

	m, err := core.BuildManifest(paths...)
	if err != nil {
		return err
	}

	files, dirs := m.Count()
	fmt.Println(styles.INFO.Render(fmt.Sprintf("sending %d files and %d folders (%s) to %s",
		files, dirs, humanize.Bytes(uint64(m.TotalSize())), addr)))

	s := core.NewSender(a.config(), a.settings.ID, a.log)
	if err := s.Send(ctx, m, addr); err != nil {
		return err
	}

	err = spinner.New().
		Title("waiting for " + addr + " to accept...").
		Context(ctx).
		ActionWithErr(func(ctx context.Context) error {
			for s.State() == core.SendRequest {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-s.Changed():
				}
			}
			return nil
		}).
		Run()
	if err != nil {
		s.End()
		return err
	}

	st := s.Status()
	if st.State == core.Send {
		fmt.Println(styles.SUCCESS.Render("request accepted"))
		release := a.watch(ctx, s)
		st = progress.New().Track(ctx, s)
		release()
		if ctx.Err() != nil {
			s.End()
		}
	}

	report(st, m.TotalSize())
	return nil
}

// pickDevice scans until the user picks a peer.
func (a *app) pickDevice(ctx context.Context, network string) (string, error) {
	for {
		devices, err := a.discover(ctx, network)
		if err != nil {
			return "", err
		}

		if len(devices) == 0 {
			if ctx.Err() == nil && Continue("No peers found, scan again?") {
				continue
			}
			return "", ErrCanceled
		}

		addr, err := NewDevicePicker(devices).Run()
		if err != nil {
			return "", err
		}

		if addr != rescan {
			return addr, nil
		}
	}
}
