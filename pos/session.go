// Package pos drives the point-of-sale web application through Playwright:
// login, event discovery and the ticket emission walker.
package pos

import (
	"fmt"
	"os"
	"strings"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

// Event is one event offered on the backoffice dashboard.
type Event struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Href string `json:"href"`
}

// Options configures a browser session.
type Options struct {
	BaseURL  string
	Headless bool
	Logger   Logger
}

// Session exclusively owns the Playwright runtime, the browser and the
// single page the walker drives. Close tears all three down; no other
// component may hold the handles.
type Session struct {
	runtime  *pw.Playwright
	browser  pw.Browser
	page     pw.Page
	baseURL  string
	headless bool
	logger   Logger
}

// NewSession starts Playwright, launches Chromium and opens the working
// page. A failure here is a setup error: nothing has been emitted yet and
// the caller should surface it before starting any batch.
func NewSession(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &SimpleLogger{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://pos.buenalive.com"
	}

	runtime, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start Playwright: %w", err)
	}

	launchOptions := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--disable-extensions",
			"--no-first-run",
		},
	}
	if executablePath := os.Getenv("PLAYWRIGHT_EXECUTABLE_PATH"); executablePath != "" {
		launchOptions.ExecutablePath = &executablePath
		logger.Printf("🚀 Using browser executable: %s", executablePath)
	}

	browser, err := runtime.Chromium.Launch(launchOptions)
	if err != nil {
		_ = runtime.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = runtime.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(10_000)
	page.SetDefaultNavigationTimeout(30_000)

	logger.Printf("✅ Browser session ready (headless=%v)", opts.Headless)
	return &Session{
		runtime:  runtime,
		browser:  browser,
		page:     page,
		baseURL:  baseURL,
		headless: opts.Headless,
		logger:   logger,
	}, nil
}

// Close shuts down the page, browser and Playwright runtime. Safe to call
// more than once.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.runtime != nil {
		_ = s.runtime.Stop()
		s.runtime = nil
	}
}

// Page exposes the working page to the walker layers.
func (s *Session) Page() pw.Page { return s.page }

// Headless reports the execution mode the session was launched with.
func (s *Session) Headless() bool { return s.headless }

// Interactor builds the element interaction helper bound to this session.
func (s *Session) Interactor() *Interactor {
	return &Interactor{page: s.page, headless: s.headless, logger: s.logger}
}

// Login signs into the POS, picks the Backoffice surface and waits for the
// dashboard. Errors here block the batch from starting.
func (s *Session) Login(email, password string) error {
	s.logger.Printf("Logging in...")

	if _, err := s.page.Goto(s.baseURL+"/", pw.PageGotoOptions{}); err != nil {
		return fmt.Errorf("could not reach %s: %w", s.baseURL, err)
	}

	username := s.page.Locator("#username")
	if err := username.WaitFor(pw.LocatorWaitForOptions{Timeout: pw.Float(10_000)}); err != nil {
		return fmt.Errorf("login form did not appear: %w", err)
	}
	if err := username.Fill(email); err != nil {
		return fmt.Errorf("could not fill username: %w", err)
	}
	if err := s.page.Locator("#password").Fill(password); err != nil {
		return fmt.Errorf("could not fill password: %w", err)
	}
	if err := s.page.Locator("//button[@type='submit' and contains(., 'Ingresar')]").Click(); err != nil {
		return fmt.Errorf("could not submit login: %w", err)
	}

	backoffice := s.page.Locator("//h2[contains(text(),'Backoffice')]")
	if err := backoffice.WaitFor(pw.LocatorWaitForOptions{Timeout: pw.Float(10_000)}); err != nil {
		return fmt.Errorf("backoffice entry not offered (bad credentials?): %w", err)
	}
	if err := backoffice.Click(); err != nil {
		return fmt.Errorf("could not enter backoffice: %w", err)
	}

	dashboard := s.page.Locator("//li[contains(@class, 'block overflow-hidden rounded bg-white')] | //div[contains(@class, 'grid')] | //main")
	if err := dashboard.First().WaitFor(pw.LocatorWaitForOptions{Timeout: pw.Float(10_000)}); err != nil {
		return fmt.Errorf("dashboard did not load: %w", err)
	}

	s.logger.Printf("✅ Login successful")
	return nil
}

// Events enumerates the event cards on the dashboard. Cards missing the
// Emitir-stock link are skipped.
func (s *Session) Events() ([]Event, error) {
	s.logger.Printf("Discovering available events...")

	cards, err := s.page.Locator("//li[contains(@class, 'block overflow-hidden rounded bg-white')]").All()
	if err != nil {
		return nil, fmt.Errorf("could not enumerate event cards: %w", err)
	}

	var events []Event
	for _, card := range cards {
		name, err := card.Locator("xpath=.//a[contains(@class, 'font-semibold')]").First().TextContent()
		if err != nil {
			continue
		}
		href, err := card.Locator("xpath=.//a[contains(., 'Emitir stock')]").First().GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		id := eventIDFromHref(href)
		if id == "" {
			continue
		}
		ev := Event{Name: strings.TrimSpace(name), ID: id, Href: href}
		events = append(events, ev)
		s.logger.Printf("  • %s (ID: %s)", ev.Name, ev.ID)
	}
	return events, nil
}

// eventIDFromHref extracts the event id from an /events/<id>/... link.
func eventIDFromHref(href string) string {
	_, after, ok := strings.Cut(href, "/events/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, "/")
	return id
}

// SaleURL is the emission entry page for an event, the known-good state
// the walker recovers to.
func (s *Session) SaleURL(ev Event) string {
	return fmt.Sprintf("%s/events/%s/sale", s.baseURL, ev.ID)
}

// OpenSale navigates to the event's emission entry page and waits up to
// wait for it to be interaction-ready.
func (s *Session) OpenSale(ev Event, wait time.Duration) error {
	if _, err := s.page.Goto(s.SaleURL(ev), pw.PageGotoOptions{}); err != nil {
		return fmt.Errorf("could not open sale page: %w", err)
	}
	ready := s.page.Locator("//button[contains(@id, 'headlessui-listbox-button')] | //input | //form")
	if err := ready.First().WaitFor(pw.LocatorWaitForOptions{Timeout: pw.Float(float64(wait.Milliseconds()))}); err != nil {
		return fmt.Errorf("sale page not ready: %w", err)
	}
	return nil
}
