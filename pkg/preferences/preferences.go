// Package preferences seeds and serves the deployment-wide preferences
// document. Initialization runs on every instance at boot; the global-config
// lock makes sure exactly one instance writes the defaults.
package preferences

import "errors"

// GlobalPreferencesID is the fixed document id; the deployment has exactly
// one preferences document.
const GlobalPreferencesID = "global"

// GlobalPreferences is the deployment-wide configuration document.
type GlobalPreferences struct {
	ID string `bson:"_id" json:"-"`

	RecordingEnabled bool `bson:"recordingEnabled" json:"recordingEnabled"`
	ChatEnabled      bool `bson:"chatEnabled" json:"chatEnabled"`

	WebhooksEnabled bool   `bson:"webhooksEnabled" json:"webhooksEnabled"`
	WebhookURL      string `bson:"webhookUrl,omitempty" json:"webhookUrl,omitempty"`
}

// Defaults returns the document a fresh deployment starts with.
func Defaults() GlobalPreferences {
	return GlobalPreferences{
		ID:               GlobalPreferencesID,
		RecordingEnabled: true,
		ChatEnabled:      true,
		WebhooksEnabled:  false,
	}
}

// ErrNotInitialized reports a read before any instance seeded the document.
var ErrNotInitialized = errors.New("global preferences not initialized")
