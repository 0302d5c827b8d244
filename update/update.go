// Package update checks the GitHub releases manifest for a newer build
// and points the operator at the download page. Binaries are never
// replaced automatically.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.github.com"

// Release is the subset of the release manifest we consume.
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// Checker polls one repository's latest release.
type Checker struct {
	repo    string // "owner/name"
	current string
	apiBase string
	client  *http.Client
}

// NewChecker builds a checker for repo comparing against the current
// version string.
func NewChecker(repo, current string) *Checker {
	return &Checker{
		repo:    repo,
		current: current,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Check fetches the latest release. It returns whether a newer version
// exists and that version string.
func (c *Checker) Check(ctx context.Context) (bool, string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("could not reach release manifest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("release manifest returned %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return false, "", fmt.Errorf("could not decode release manifest: %w", err)
	}
	latest := strings.TrimPrefix(strings.TrimSpace(release.TagName), "v")
	if latest == "" {
		return false, "", fmt.Errorf("release manifest has no tag")
	}

	if CompareVersions(latest, c.current) > 0 {
		return true, latest, nil
	}
	return false, c.current, nil
}

// ReleasesURL is the page opened for the operator to download from.
func (c *Checker) ReleasesURL() string {
	return fmt.Sprintf("https://github.com/%s/releases/latest", c.repo)
}

// CompareVersions compares two MAJOR.MINOR.PATCH strings numerically:
// -1 when a < b, 0 when equal, 1 when a > b. Missing segments read as 0;
// non-numeric segments read as 0.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < 3; i++ {
		av, bv := segment(as, i), segment(bs, i)
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func segment(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}

// OpenDownloadPage opens url in the user's default browser.
func OpenDownloadPage(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
