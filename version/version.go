// Package version holds the application version string used by the updater
// and the service banner. Bump before tagging a release.
package version

// Version follows MAJOR.MINOR.PATCH.
const Version = "1.1.0"
