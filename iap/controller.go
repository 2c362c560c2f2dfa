package iap

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/code-payments/iap-verifier/iap/metrics"
)

// Controller is the entry point for receipt verification: it dispatches a
// receipt to the provider's verifier, normalizes the response with the
// provider's parser and packages the result.
type Controller struct {
	log      *zap.Logger
	registry *Registry
	metrics  *metrics.Metrics
}

type ControllerOption func(c *Controller)

// WithMetrics records the outcome and latency of every verification.
func WithMetrics(m *metrics.Metrics) ControllerOption {
	return func(c *Controller) {
		c.metrics = m
	}
}

func NewController(log *zap.Logger, registry *Registry, opts ...ControllerOption) *Controller {
	c := &Controller{
		log:      log,
		registry: registry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers returns the providers this controller can verify receipts for.
func (c *Controller) Providers() []Provider {
	return c.registry.Providers()
}

// VerifyReceipt verifies the receipt with the named provider and returns the
// normalized result.
//
// ErrUndefinedProvider is returned if the provider isn't active. Verification
// and parsing failures are returned as *VerificationFailedError and
// *ParsingFailedError respectively.
func (c *Controller) VerifyReceipt(ctx context.Context, providerName string, receipt string) (*ProcessedReceipt, error) {
	start := time.Now()

	log := c.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("provider", providerName),
	)

	provider, err := ParseProvider(providerName)
	if err != nil || !c.registry.IsActive(provider) {
		log.Debug("Rejecting receipt for undefined provider")
		c.metrics.ObserveVerification(provider.String(), metrics.ResultUndefinedProvider, time.Since(start))
		return nil, ErrUndefinedProvider
	}

	verifier, err := c.registry.Verifier(provider)
	if err != nil {
		return nil, err
	}
	parser, err := c.registry.Parser(provider)
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("receipt_id", GetReceiptID(receipt)))
	log.Debug("Got a receipt")

	response, err := verifier.Verify(ctx, receipt)
	if err != nil {
		log.Warn("Failed to verify receipt", zap.Error(err))
		c.metrics.ObserveVerification(provider.String(), resultFor(err), time.Since(start))
		return nil, err
	}

	info, err := Parse(parser, response)
	if err != nil {
		log.Warn("Failed to parse provider response", zap.Error(err))
		c.metrics.ObserveVerification(provider.String(), metrics.ResultParsingFailed, time.Since(start))
		return nil, err
	}

	processed, err := NewProcessedReceipt(provider, info, receipt, response)
	if err != nil {
		log.Warn("Failed to encode provider response", zap.Error(err))
		c.metrics.ObserveVerification(provider.String(), metrics.ResultParsingFailed, time.Since(start))
		return nil, &ParsingFailedError{Provider: provider, Field: FieldProviderResponse, Err: err}
	}

	log.Debug("Verified receipt",
		zap.String("product_id", info.ProductID),
		zap.Time("expiration_date", info.ExpirationDate),
		zap.Bool("is_renewable", info.IsRenewable),
	)
	c.metrics.ObserveVerification(provider.String(), metrics.ResultOK, time.Since(start))

	return processed, nil
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrParsingFailed):
		return metrics.ResultParsingFailed
	case errors.Is(err, ErrUndefinedProvider):
		return metrics.ResultUndefinedProvider
	default:
		return metrics.ResultVerificationFailed
	}
}
