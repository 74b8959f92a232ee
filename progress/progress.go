package progress

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/Dyastin-0/senddone/core"
	"github.com/dustin/go-humanize"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const refresh = 150 * time.Millisecond

type Progress struct {
	progress *mpb.Progress
	opts     []mpb.ContainerOption
	speed    atomic.Int64
}

func New(opts ...mpb.ContainerOption) *Progress {
	return &Progress{
		progress: mpb.New(opts...),
		opts:     opts,
	}
}

// NewBar tracks the bytes of one item.
func (p *Progress) NewBar(n int64, text string) *mpb.Bar {
	return p.progress.AddBar(n,
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: 24, C: decor.DindentRight}),
			decor.CountersKibiByte(" % .2f / % .2f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string {
				return humanize.Bytes(uint64(p.speed.Load())) + "/s"
			}, decor.WC{W: 12}),
			decor.Elapsed(1, decor.WC{W: 12, C: decor.DindentRight}),
		),
	)
}

// NewCountBar tracks finished items of a transfer.
func (p *Progress) NewCountBar(n int64, text string) *mpb.Bar {
	return p.progress.AddBar(n,
		mpb.BarPriority(-1),
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: 24, C: decor.DindentRight}),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 6}),
		),
	)
}

func (p *Progress) Wait() {
	p.progress.Wait()
}

func (p *Progress) Reset() {
	if p.progress != nil {
		p.progress.Wait()
	}

	p.progress = mpb.New(p.opts...)
}

// Source is a transfer whose progress can be followed, a *core.Sender or a
// *core.Receiver.
type Source interface {
	Status() core.Status
	Changed() <-chan struct{}
}

// Track renders src until it settles in a terminal or idle state, or ctx is
// done, and returns the last status seen.
func (p *Progress) Track(ctx context.Context, src Source) core.Status {
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	var (
		total    *mpb.Bar
		item     *mpb.Bar
		itemName string
	)

	finish := func() {
		for _, bar := range []*mpb.Bar{item, total} {
			if bar != nil && !bar.Completed() {
				bar.Abort(false)
			}
		}
		p.Wait()
	}

	for {
		st := src.Status()
		p.speed.Store(int64(st.Speed))

		if total == nil && st.TotalItems > 0 {
			total = p.NewCountBar(int64(st.TotalItems), "items")
		}

		if st.Item != "" && st.Item != itemName {
			if item != nil && !item.Completed() {
				item.Abort(false)
			}

			itemName = st.Item
			item = p.NewBar(st.ItemSize, st.Item)
		}

		if item != nil {
			item.SetCurrent(st.ItemBytes)
			if st.ItemBytes >= st.ItemSize {
				item.SetTotal(-1, true)
			}
		}

		if total != nil {
			total.SetCurrent(int64(st.Items))
		}

		if st.State.Terminal() || st.State == core.Idle {
			finish()
			return st
		}

		select {
		case <-ctx.Done():
			finish()
			return src.Status()
		case <-src.Changed():
		case <-ticker.C:
		}
	}
}

// ScanBar counts probed addresses on an ANSI aware stdout.
func ScanBar(total int64) *progressbar.ProgressBar {
	return NewScanBar(ansi.NewAnsiStdout(), total)
}

func NewScanBar(w io.Writer, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionFullWidth(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}
