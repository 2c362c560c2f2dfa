package apple

// Config configures receipt verification against the App Store.
type Config struct {
	// BundleID is the app's bundle identifier, e.g. "com.flipchat.app".
	BundleID string

	// SharedSecret is the app specific shared secret required for
	// auto-renewable subscriptions.
	SharedSecret string

	// ExcludeOldTransactions asks for only the latest transaction of each
	// subscription.
	ExcludeOldTransactions bool

	// AutoRetryWrongEnvRequest retries once against the other environment when
	// the App Store reports the receipt belongs there.
	AutoRetryWrongEnvRequest bool

	// Sandbox sends receipts to the sandbox environment first.
	Sandbox bool

	// LocalValidation decodes and authenticates the receipt locally instead of
	// calling the App Store.
	LocalValidation bool
}

func DefaultConfig(bundleID string) *Config {
	return &Config{
		BundleID:                 bundleID,
		ExcludeOldTransactions:   true,
		AutoRetryWrongEnvRequest: true,
	}
}
