package popup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ChromeOpener opens login windows in a dedicated Chrome instance.
type ChromeOpener struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
	// Headless is only useful for tests and CI; a person cannot sign in
	// through a headless window.
	Headless bool
}

func (o ChromeOpener) Open(ctx context.Context, g Geometry) (Window, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", o.Headless),
		chromedp.Flag("new-window", true),
		chromedp.Flag("window-position", fmt.Sprintf("%d,%d", g.Left, g.Top)),
		chromedp.WindowSize(g.Width, g.Height),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	// The window outlives ctx; it is torn down by Close.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)

	w := &chromeWindow{ctx: taskCtx}
	w.cancel = func() {
		cancelTask()
		cancelAlloc()
	}

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(taskCtx) }()
	select {
	case err := <-started:
		if err != nil {
			w.cancel()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-ctx.Done():
		w.cancel()
		return nil, ctx.Err()
	}

	targetID := chromedp.FromContext(taskCtx).Target.TargetID
	chromedp.ListenBrowser(taskCtx, func(ev any) {
		if e, ok := ev.(*target.EventTargetDestroyed); ok && e.TargetID == targetID {
			w.closed.Store(true)
		}
	})
	chromedp.ListenTarget(taskCtx, func(ev any) {
		if _, ok := ev.(*inspector.EventDetached); ok {
			w.closed.Store(true)
		}
	})
	go func() {
		<-taskCtx.Done()
		w.closed.Store(true)
	}()
	return w, nil
}

type chromeWindow struct {
	ctx       context.Context
	cancel    func()
	closed    atomic.Bool
	closeOnce sync.Once
}

func (w *chromeWindow) Navigate(ctx context.Context, url string) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(w.ctx, chromedp.Navigate(url)) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *chromeWindow) Closed() bool { return w.closed.Load() }

func (w *chromeWindow) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.cancel()
	})
	return nil
}
