// Package urls holds the documentation links printed by periphmon, so they
// can be updated in one place before a release.
package urls
