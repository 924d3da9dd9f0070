// internal/core/ports/preferences.go
package ports

import (
	"context"
	"errors"
)

// PrefLastOpenSubmenu remembers which sidebar submenu was expanded last
const PrefLastOpenSubmenu = "last_open_submenu"

// ErrPreferenceNotSet is returned by Get when the key was never written
var ErrPreferenceNotSet = errors.New("preference not set")

// PreferenceStore keeps small UI preferences between sessions
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
