package providers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/apple"
	"github.com/code-payments/iap-verifier/iap/google"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"APPLE_BUNDLE_ID",
		"APPLE_SHARED_SECRET",
		"APPLE_EXCLUDE_OLD_TRANSACTIONS",
		"APPLE_AUTO_RETRY_WRONG_ENV_REQUEST",
		"APPLE_SANDBOX",
		"APPLE_LOCAL_VALIDATION",
		"GOOGLE_BUNDLE_ID",
		"GOOGLE_PRIVATE_KEY_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Empty(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Nil(t, cfg.Apple)
	require.Nil(t, cfg.Google)
	require.Empty(t, cfg.ActiveProviders())
}

func TestLoadConfig_Apple(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPLE_BUNDLE_ID", "xyz.flipchat.app")
	t.Setenv("APPLE_SHARED_SECRET", "secret")
	t.Setenv("APPLE_SANDBOX", "true")
	t.Setenv("APPLE_AUTO_RETRY_WRONG_ENV_REQUEST", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Nil(t, cfg.Google)
	require.Equal(t, &apple.Config{
		BundleID:                 "xyz.flipchat.app",
		SharedSecret:             "secret",
		ExcludeOldTransactions:   true,
		AutoRetryWrongEnvRequest: false,
		Sandbox:                  true,
	}, cfg.Apple)
	require.Equal(t, []iap.Provider{iap.ProviderApple}, cfg.ActiveProviders())
}

func TestLoadConfig_Google(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_BUNDLE_ID", "xyz.flipchat.app")
	t.Setenv("GOOGLE_PRIVATE_KEY_PATH", "/etc/iap/service-account.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Nil(t, cfg.Apple)
	require.Equal(t, &google.Config{
		BundleID:       "xyz.flipchat.app",
		PrivateKeyPath: "/etc/iap/service-account.json",
	}, cfg.Google)
}

func TestLoadConfig_InvalidBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("APPLE_BUNDLE_ID", "xyz.flipchat.app")
	t.Setenv("APPLE_LOCAL_VALIDATION", "sometimes")

	_, err := LoadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "APPLE_LOCAL_VALIDATION")
}

func TestActiveProviders(t *testing.T) {
	cfg := Config{
		Apple:  apple.DefaultConfig("xyz.flipchat.app"),
		Google: &google.Config{BundleID: "xyz.flipchat.app"},
	}
	require.Equal(t, []iap.Provider{iap.ProviderApple, iap.ProviderGoogle}, cfg.ActiveProviders())
}
