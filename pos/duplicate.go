package pos

import (
	"time"
)

// duplicateAlertJS checks the page-level alerts for the vendor's
// duplicated-document rejection. A querySelectorAll sweep is noticeably
// faster than a structural element search here.
const duplicateAlertJS = `() => {
	var alerts = document.querySelectorAll('div[role="alert"]');
	for (var i = 0; i < alerts.length; i++) {
		if (alerts[i].textContent.includes('duplicatedDocuments')) {
			return true;
		}
	}
	return false;
}`

const (
	duplicatePollAttempts = 4
	duplicatePollInterval = 500 * time.Millisecond
	duplicateRecoveryWait = 10 * time.Second
)

// pollDuplicate runs check up to attempts times at interval. On the first
// positive it runs recover once (failures logged, non-fatal) and returns
// true. Check errors are swallowed: duplicate rejection is a frequent
// business outcome, not a reason to abort the batch.
func pollDuplicate(check func() (bool, error), recover func() error, attempts int, interval time.Duration, logger Logger) bool {
	for attempt := 0; attempt < attempts; attempt++ {
		hit, err := check()
		if err != nil {
			logger.Printf("Duplicate check error: %v", err)
			return false
		}
		if hit {
			logger.Printf("⚠️ Duplicate document detected (attempt %d) - returning to sale page", attempt+1)
			if err := recover(); err != nil {
				logger.Printf("  ⚠ Recovery error: %v", err)
			} else {
				logger.Printf("  ✓ Sale page ready for next ticket")
			}
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// checkDuplicate detects the duplicated-document alert after reserving
// and recovers the session back to the event's emission entry page.
func (w *Walker) checkDuplicate() bool {
	return pollDuplicate(
		func() (bool, error) {
			v, err := w.session.Page().Evaluate(duplicateAlertJS)
			if err != nil {
				return false, err
			}
			hit, _ := v.(bool)
			return hit, nil
		},
		func() error {
			return w.session.OpenSale(w.event, duplicateRecoveryWait)
		},
		duplicatePollAttempts,
		duplicatePollInterval,
		w.logger,
	)
}
