package preferences

import "context"

// Repository is the preferences persistence contract.
type Repository interface {
	// Get returns the global document, ErrNotInitialized when absent.
	Get(ctx context.Context) (*GlobalPreferences, error)

	// Insert creates the document. It must fail when one already exists.
	Insert(ctx context.Context, prefs *GlobalPreferences) error

	// Update replaces the existing document.
	Update(ctx context.Context, prefs *GlobalPreferences) error
}
