// Package appstore integrates the sandboxed third-party application
// channels (Flatpak and Snap). A missing backend binary is a capability,
// not an error: callers consult Available before querying.
package appstore

import (
	"context"
	"strings"

	"github.com/zaurpkg/zaur/pkg/errors"
)

// Package is one app-store entry.
type Package struct {
	Name        string `json:"name"`
	ID          string `json:"id"` // application id (Flatpak) or snap name
	Version     string `json:"version"`
	Origin      string `json:"origin"` // remote or publisher
	Description string `json:"description"`
}

// Backend is one application distribution channel.
type Backend interface {
	// Name identifies the backend ("flatpak", "snap").
	Name() string

	// Available reports whether the backend binary is usable.
	Available() bool

	// Search lists packages matching query.
	Search(ctx context.Context, query string) ([]Package, error)

	// Install installs by id. Long installs observe ctx and terminate the
	// child cleanly when interrupted.
	Install(ctx context.Context, id string) error

	// Uninstall removes by id.
	Uninstall(ctx context.Context, id string) error
}

// Matches applies the store matching rule: case-insensitive substring on the
// display name, or exact application id.
func Matches(pkg Package, query string) bool {
	return strings.Contains(strings.ToLower(pkg.Name), strings.ToLower(query)) ||
		strings.EqualFold(pkg.ID, query)
}

// cancelled converts a context interruption into a reportable error so an
// aborted install is never silently swallowed.
func cancelled(ctx context.Context, backend, id string) error {
	if ctx.Err() == nil {
		return nil
	}
	return errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "%s install of %s interrupted", backend, id)
}
