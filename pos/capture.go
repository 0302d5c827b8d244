package pos

import (
	"regexp"

	pw "github.com/playwright-community/playwright-go"
)

var ticketRef = regexp.MustCompile(`#\d+`)

// ticketCapturePatterns is the prioritized list of element patterns
// scanned for the confirmation ticket number.
var ticketCapturePatterns = []string{
	"//p[contains(@class, 'text-gray-500') and contains(text(), '#')]",
	"//span[contains(text(), '#')]",
	"//div[contains(text(), '#')]",
	"//*[contains(@class, 'text-sm') and contains(text(), '#')]",
}

// firstTicketRef returns the first "#<digits>" fragment found in texts,
// or "".
func firstTicketRef(texts []string) string {
	for _, t := range texts {
		if m := ticketRef.FindString(t); m != "" {
			return m
		}
	}
	return ""
}

// CaptureTicketNumber scans the confirmation page for the vendor-issued
// ticket identifier. Returns "" when nothing matches; never fails.
func CaptureTicketNumber(page pw.Page) string {
	for _, pattern := range ticketCapturePatterns {
		texts, err := page.Locator(pattern).AllTextContents()
		if err != nil {
			continue
		}
		if ref := firstTicketRef(texts); ref != "" {
			return ref
		}
	}
	return ""
}
