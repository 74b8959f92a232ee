package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/progress"
	"github.com/Dyastin-0/senddone/styles"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func (a *app) listenCommand() *cli.Command {
	return &cli.Command{
		Name:    "listen",
		Aliases: []string{"receive"},
		Usage:   "wait for peers to send files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "download directory",
			},
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "address to listen on",
				Value:   "0.0.0.0",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "accept every request without asking",
			},
		},
		Action: a.listenAction,
	}
}

func (a *app) listenAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if dir == "" {
		dir = a.settings.DownloadDir
	}

	r := core.NewReceiver(a.config(), a.settings.ID, a.log)
	if err := r.Listen(cmd.String("addr")); err != nil {
		return err
	}

	errch := make(chan error, 1)
	go func() {
		errch <- r.Serve(ctx)
	}()

	fmt.Println(styles.INFO.Render(fmt.Sprintf("listening on %s as %s, saving to %s", r.Addr(), a.settings.ID, dir)))

	bars := progress.New()

	for {
		select {
		case <-ctx.Done():
			<-errch
			return nil

		case err := <-errch:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err

		case <-r.Changed():
			switch state := r.State(); {
			case state == core.RecvWait:
				a.handleRequest(ctx, r, bars, dir, cmd.Bool("yes"))
			case state.Terminal():
				settle(r)
			}
		}
	}
}

func (a *app) handleRequest(ctx context.Context, r *core.Receiver, bars *progress.Progress, dir string, yes bool) {
	id, addr := r.Peer()
	m := r.Manifest()

	if !yes && !OnRequest(id, addr, m) {
		if err := r.Reject(); err != nil {
			a.log.WithErr(err).Warn("reject failed")
			settle(r)
			return
		}
		fmt.Println(styles.INFO.Render("request rejected"))
		return
	}

	if err := r.Accept(dir); err != nil {
		// the sender may have gone away while the request was pending
		if errors.Is(err, core.ErrInvalidState) {
			settle(r)
			return
		}

		fmt.Println(styles.ERROR.Render(err.Error()))
		if err := r.Reject(); err != nil {
			a.log.WithErr(err).Warn("reject failed")
			settle(r)
		}
		return
	}

	release := a.watch(ctx, r)
	st := bars.Track(ctx, r)
	release()

	report(st, m.TotalSize())
	r.Reset()
	bars.Reset()
}

// settle reports a transfer that ended outside Track and frees r for the
// next request.
func settle(r *core.Receiver) {
	st := r.Status()
	if !st.State.Terminal() {
		return
	}

	report(st, r.Manifest().TotalSize())
	r.Reset()
}

func report(st core.Status, size int64) {
	switch st.State {
	case core.RecvDone, core.SendDone:
		fmt.Println(styles.SUCCESS.Render(fmt.Sprintf("done, %s items, %s, avg %s/s",
			st.TotalProgress(), humanize.Bytes(uint64(size)), humanize.Bytes(uint64(st.AvgSpeed)))))
	case core.SendReject:
		fmt.Println(styles.WARN.Render("request rejected by peer"))
	case core.SenderEnd, core.ReceiverEnd:
		fmt.Println(styles.WARN.Render(fmt.Sprintf("transfer aborted (%s) after %s items", st.State, st.TotalProgress())))
	case core.ErrFs:
		fmt.Println(styles.ERROR.Render("transfer failed: could not write to the download directory"))
	case core.ErrNet:
		fmt.Println(styles.ERROR.Render("transfer failed: connection lost"))
	default:
		fmt.Println(styles.WARN.Render("transfer interrupted in state " + st.State.String()))
	}
}
