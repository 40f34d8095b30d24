// Package consent drives the site's cookie-consent dialog with a headless
// browser. The flow is a slow, one-shot procedure: load the consent page,
// find the consent-message frame, click the accept button and harvest the
// cookies the site hands out. Everything else in the crawler treats the
// result as an opaque credential blob.
package consent

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	Logger "github.com/basislager/dstcrawl/utils/log"
)

const (
	consentURL = "https://www.derstandard.at/consent/tcf/"

	// DefaultTimeout bounds the whole flow; the dialog not appearing in
	// this window is a hard failure.
	DefaultTimeout = 90 * time.Second

	buttonSelector = `button[title="Einverstanden"]`
)

// AcceptConditions accepts the terms-and-conditions dialog and returns the
// resulting cookies, keyed by name. It fails with a timeout error when the
// expected dialog element never appears.
func AcceptConditions(ctx context.Context) (map[string]string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(consentURL)); err != nil {
		return nil, errors.Wrap(err, "load consent page")
	}
	if err := acceptInConsentFrame(browserCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(err, "accepting terms and conditions timed out")
		}
		return nil, errors.Wrap(err, "accept terms and conditions")
	}

	cookies := make(map[string]string)
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		all, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range all {
			cookies[c.Name] = c.Value
		}
		return nil
	}))
	if err != nil {
		return nil, errors.Wrap(err, "collect cookies")
	}

	Logger.Log.Infof("consent flow finished with %d cookies", len(cookies))
	return cookies, nil
}

// acceptInConsentFrame clicks the accept button. The consent message lives
// in a cross-origin iframe, which the browser exposes as a separate
// target; the dialog loads asynchronously, so the targets are polled until
// one of them contains the button or the deadline expires.
func acceptInConsentFrame(browserCtx context.Context) error {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		targets, err := chromedp.Targets(browserCtx)
		if err != nil {
			return err
		}
		for _, t := range targets {
			if t.Type != "iframe" {
				continue
			}
			frameCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(t.TargetID))
			attemptCtx, cancelAttempt := context.WithTimeout(frameCtx, 2*time.Second)
			err := chromedp.Run(attemptCtx, chromedp.Click(buttonSelector, chromedp.ByQuery, chromedp.NodeVisible))
			cancelAttempt()
			cancel()
			if err == nil {
				return nil
			}
		}

		select {
		case <-browserCtx.Done():
			return browserCtx.Err()
		case <-tick.C:
		}
	}
}
