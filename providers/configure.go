package providers

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/apple"
	"github.com/code-payments/iap-verifier/iap/cache"
	"github.com/code-payments/iap-verifier/iap/google"
)

type options struct {
	appleValidator      apple.Validator
	googleValidator     google.Validator
	googleClientOptions []option.ClientOption
	cacheTTL            time.Duration
}

type Option func(o *options)

// WithAppleValidator replaces the App Store validator.
func WithAppleValidator(v apple.Validator) Option {
	return func(o *options) {
		o.appleValidator = v
	}
}

// WithGoogleValidator replaces the Google Play Developer API validator.
func WithGoogleValidator(v google.Validator) Option {
	return func(o *options) {
		o.googleValidator = v
	}
}

// WithGoogleClientOptions adds options to the Google Play Developer API client.
func WithGoogleClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) {
		o.googleClientOptions = append(o.googleClientOptions, opts...)
	}
}

// WithResponseCache caches successful provider responses for ttl.
func WithResponseCache(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

type factory struct {
	newVerifier func(ctx context.Context, log *zap.Logger, cfg Config, o *options) (iap.Verifier, error)
	newParser   func() iap.Parser
}

var factories = map[iap.Provider]factory{
	iap.ProviderApple: {
		newVerifier: func(_ context.Context, log *zap.Logger, cfg Config, o *options) (iap.Verifier, error) {
			return apple.NewVerifier(log, cfg.Apple, o.appleValidator)
		},
		newParser: func() iap.Parser {
			return apple.NewParser()
		},
	},
	iap.ProviderGoogle: {
		newVerifier: func(ctx context.Context, log *zap.Logger, cfg Config, o *options) (iap.Verifier, error) {
			if cfg.Google == nil {
				return nil, errors.Wrap(iap.ErrConfigurationMissing, "google")
			}

			validator := o.googleValidator
			if validator == nil {
				publisher, err := google.NewPublisherValidatorFromConfig(ctx, cfg.Google, o.googleClientOptions...)
				if err != nil {
					return nil, err
				}
				validator = publisher
			}
			return google.NewVerifier(log, cfg.Google, validator)
		},
		newParser: func() iap.Parser {
			return google.NewParser()
		},
	},
}

// Configure builds a verifier and a parser for every active provider.
//
// ErrConfigurationMissing is returned if no provider is configured. Configure
// isn't safe to call concurrently with verification; callers build a new
// registry, and controller, to reconfigure. The registry should be closed
// once it's no longer used, to stop response cache goroutines.
func Configure(ctx context.Context, log *zap.Logger, cfg Config, opts ...Option) (*iap.Registry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	active := cfg.ActiveProviders()
	if len(active) == 0 {
		return nil, errors.Wrap(iap.ErrConfigurationMissing, "no provider configurations found")
	}

	names := make([]string, len(active))
	for i, provider := range active {
		names[i] = provider.String()
	}
	log.Info("Configuring verifiers and parsers", zap.String("providers", strings.Join(names, ", ")))

	verifiers := make([]iap.Verifier, 0, len(active))
	parsers := make([]iap.Parser, 0, len(active))
	for _, provider := range active {
		f, ok := factories[provider]
		if !ok {
			return nil, errors.Wrapf(iap.ErrUndefinedProvider, "no implementation for provider %s", provider)
		}

		verifier, err := f.newVerifier(ctx, log, cfg, o)
		if err != nil {
			closeVerifiers(verifiers)
			return nil, errors.Wrapf(err, "failed to configure %s verifier", provider)
		}
		if o.cacheTTL > 0 {
			verifier = cache.NewInCache(verifier, o.cacheTTL)
		}

		verifiers = append(verifiers, verifier)
		parsers = append(parsers, f.newParser())
	}

	registry, err := iap.NewRegistry(verifiers, parsers)
	if err != nil {
		closeVerifiers(verifiers)
		return nil, err
	}
	return registry, nil
}

func closeVerifiers(verifiers []iap.Verifier) {
	for _, verifier := range verifiers {
		if closer, ok := verifier.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}
