package google

// Config configures receipt verification against Google Play.
type Config struct {
	// BundleID is the Android app's package name, e.g. "xyz.flipchat.app".
	BundleID string

	// PrivateKeyPath is the path to the service account JSON key used to call
	// the Google Play Developer API.
	PrivateKeyPath string
}
