package apple

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/code-payments/iap-verifier/iap"
)

type Verifier struct {
	log       *zap.Logger
	config    *Config
	validator Validator
}

// NewVerifier returns a verifier bound to cfg. If validator is nil, receipts
// are validated with the App Store, or locally when cfg.LocalValidation is set.
func NewVerifier(log *zap.Logger, cfg *Config, validator Validator) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.Wrap(iap.ErrConfigurationMissing, "apple")
	}

	if validator == nil {
		if cfg.LocalValidation {
			validator = NewLocalValidator(cfg.BundleID)
		} else {
			validator = NewStoreValidator(cfg)
		}
	}

	return &Verifier{
		log:       log.With(zap.String("provider", iap.ProviderApple.String())),
		config:    cfg,
		validator: validator,
	}, nil
}

func (v *Verifier) Provider() iap.Provider {
	return iap.ProviderApple
}

func (v *Verifier) Verify(ctx context.Context, receipt string) (iap.RawResponse, error) {
	response, err := v.validator.Validate(ctx, receipt, v.config.SharedSecret, v.config.ExcludeOldTransactions)
	if err != nil {
		failure := &iap.VerificationFailedError{
			Provider: iap.ProviderApple,
			Err:      err,
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			failure.Response = statusErr.Response
		}

		v.log.Warn("Apple receipt check failed", zap.Error(err), zap.Any("response", failure.Response))
		return nil, failure
	}

	return response, nil
}
