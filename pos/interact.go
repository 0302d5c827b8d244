package pos

import (
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// Probe is the reified result of one element interaction. The walker
// decides policy from it; this layer never lets a failure escape.
type Probe int

const (
	// Found means the element appeared and the interaction succeeded.
	Found Probe = iota
	// NotFound means the element did not appear within the bound.
	NotFound
	// Errored means the element appeared but the interaction failed.
	Errored
)

func (p Probe) Ok() bool { return p == Found }

func (p Probe) String() string {
	switch p {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	default:
		return "errored"
	}
}

// Interactor wraps "wait for element, then act" with a bounded timeout.
// Headless sessions get the shorter default bound and dispatch clicks via
// in-page script, which sidesteps occlusion failures under headless
// rendering.
type Interactor struct {
	page     pw.Page
	headless bool
	logger   Logger
}

func (it *Interactor) defaultTimeout() time.Duration {
	if it.headless {
		return 3 * time.Second
	}
	return 5 * time.Second
}

func (it *Interactor) resolve(timeout ...time.Duration) float64 {
	d := it.defaultTimeout()
	if len(timeout) > 0 && timeout[0] > 0 {
		d = timeout[0]
	}
	return float64(d.Milliseconds())
}

// Click waits for the first element matching selector to become visible,
// then clicks it. desc names the element in the log.
func (it *Interactor) Click(selector, desc string, timeout ...time.Duration) Probe {
	loc := it.page.Locator(selector).First()
	if err := loc.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(it.resolve(timeout...)),
	}); err != nil {
		it.logger.Printf("  ⚠ %s not found, continuing...", desc)
		return NotFound
	}
	if err := it.clickLocator(loc); err != nil {
		it.logger.Printf("  ⚠ Error clicking %s: %v", desc, err)
		return Errored
	}
	return Found
}

// Fill waits for the first element matching selector, then replaces its
// value with text.
func (it *Interactor) Fill(selector, text, desc string, timeout ...time.Duration) Probe {
	loc := it.page.Locator(selector).First()
	if err := loc.WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(it.resolve(timeout...)),
	}); err != nil {
		it.logger.Printf("  ⚠ %s not found", desc)
		return NotFound
	}
	if err := loc.Fill(text); err != nil {
		it.logger.Printf("  ⚠ Error filling %s: %v", desc, err)
		return Errored
	}
	return Found
}

// clickLocator dispatches the mode-appropriate click on an already
// resolved locator.
func (it *Interactor) clickLocator(loc pw.Locator) error {
	if it.headless {
		_, err := loc.Evaluate("el => el.click()", nil)
		return err
	}
	_ = loc.ScrollIntoViewIfNeeded()
	return loc.Click()
}
