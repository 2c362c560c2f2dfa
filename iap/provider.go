package iap

import "github.com/pkg/errors"

// Provider identifies an in-app purchase platform.
type Provider uint8

const (
	ProviderUnknown Provider = iota
	ProviderApple
	ProviderGoogle
)

func (p Provider) String() string {
	switch p {
	case ProviderApple:
		return "apple"
	case ProviderGoogle:
		return "google"
	default:
		return "unknown"
	}
}

// ParseProvider maps a provider tag, e.g. "apple", to its Provider. Tags are
// matched exactly, so "Apple" or " apple" are undefined.
func ParseProvider(name string) (Provider, error) {
	switch name {
	case "apple":
		return ProviderApple, nil
	case "google":
		return ProviderGoogle, nil
	default:
		return ProviderUnknown, errors.Wrapf(ErrUndefinedProvider, "provider %q", name)
	}
}

// AllProviders returns every known provider in declaration order.
func AllProviders() []Provider {
	return []Provider{ProviderApple, ProviderGoogle}
}
