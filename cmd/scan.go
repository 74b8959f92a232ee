package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/progress"
	"github.com/Dyastin-0/senddone/styles"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func networkFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "network",
		Aliases: []string{"n"},
		Usage:   "interface to scan (default is the routed one)",
	}
}

func (a *app) scanCommand() *cli.Command {
	return &cli.Command{
		Name:   "scan",
		Usage:  "discover peers on the local network",
		Flags:  []cli.Flag{networkFlag()},
		Action: a.scanAction,
	}
}

func (a *app) scanAction(ctx context.Context, cmd *cli.Command) error {
	devices, err := a.discover(ctx, cmd.String("network"))
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println(styles.WARN.Render("no peers found"))
		return nil
	}

	fmt.Println(styles.TITLE.Render(fmt.Sprintf("Found %d peers", len(devices))))
	for _, d := range devices {
		fmt.Println(formatDevice(d))
	}

	return nil
}

// discover scans one network with a progress bar and returns the responders
// sorted by address.
func (a *app) discover(ctx context.Context, name string) ([]core.Device, error) {
	n, err := network(name)
	if err != nil {
		return nil, err
	}

	fmt.Println(styles.INFO.Render("scanning " + n.String()))

	scanner := core.NewScanner(a.config(), a.log)

	var devices []core.Device
	errch := make(chan error, 1)

	go func() {
		errch <- scanner.Scan(ctx, n.IP, n.Netmask, a.settings.ID, func(d core.Device) {
			devices = append(devices, d)
		})
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var bar *progressbar.ProgressBar

	for {
		select {
		case err := <-errch:
			if bar != nil {
				bar.Finish()
			}

			if err != nil && !errors.Is(err, context.Canceled) {
				return nil, err
			}

			sort.Slice(devices, func(i, j int) bool {
				return devices[i].Address < devices[j].Address
			})
			return devices, nil

		case <-ticker.C:
			probed, total := scanner.Progress()
			if bar == nil && total > 0 {
				bar = progress.ScanBar(total)
			}
			if bar != nil {
				bar.Set64(probed)
			}
		}
	}
}

func formatDevice(d core.Device) string {
	return fmt.Sprintf("%-16s %-38s %-8s %s", d.Address, d.ID, d.OS, styles.INFO.Render("v"+d.Version))
}
