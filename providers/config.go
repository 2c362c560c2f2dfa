package providers

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/apple"
	"github.com/code-payments/iap-verifier/iap/google"
)

// Config holds the configuration of every provider. A provider is active iff
// its entry is non-nil.
type Config struct {
	Apple  *apple.Config
	Google *google.Config
}

// ActiveProviders returns the providers with a configuration entry.
func (c Config) ActiveProviders() []iap.Provider {
	var active []iap.Provider
	if c.Apple != nil {
		active = append(active, iap.ProviderApple)
	}
	if c.Google != nil {
		active = append(active, iap.ProviderGoogle)
	}
	return active
}

// LoadConfig reads the provider configuration from the environment, after
// loading a .env file from the working directory if there is one. A provider
// is configured only if its bundle id is set.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	if bundleID := getenv("APPLE_BUNDLE_ID", ""); bundleID != "" {
		appleCfg := apple.DefaultConfig(bundleID)
		appleCfg.SharedSecret = getenv("APPLE_SHARED_SECRET", "")

		var err error
		if appleCfg.ExcludeOldTransactions, err = getenvBool("APPLE_EXCLUDE_OLD_TRANSACTIONS", appleCfg.ExcludeOldTransactions); err != nil {
			return Config{}, err
		}
		if appleCfg.AutoRetryWrongEnvRequest, err = getenvBool("APPLE_AUTO_RETRY_WRONG_ENV_REQUEST", appleCfg.AutoRetryWrongEnvRequest); err != nil {
			return Config{}, err
		}
		if appleCfg.Sandbox, err = getenvBool("APPLE_SANDBOX", appleCfg.Sandbox); err != nil {
			return Config{}, err
		}
		if appleCfg.LocalValidation, err = getenvBool("APPLE_LOCAL_VALIDATION", appleCfg.LocalValidation); err != nil {
			return Config{}, err
		}

		cfg.Apple = appleCfg
	}

	if bundleID := getenv("GOOGLE_BUNDLE_ID", ""); bundleID != "" {
		cfg.Google = &google.Config{
			BundleID:       bundleID,
			PrivateKeyPath: getenv("GOOGLE_PRIVATE_KEY_PATH", ""),
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	val := getenv(key, "")
	if val == "" {
		return def, nil
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return false, errors.Wrapf(err, "invalid value for %s", key)
	}
	return b, nil
}
