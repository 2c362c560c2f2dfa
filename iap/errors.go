package iap

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing is returned when no provider is configured, or
	// when a component is built for a provider without configuration.
	ErrConfigurationMissing = errors.New("iap configuration is missing")

	// ErrUndefinedProvider is returned for providers that are unknown or were
	// not activated at configuration time.
	ErrUndefinedProvider = errors.New("iap provider is not defined")

	ErrVerificationFailed = errors.New("iap receipt verification failed")
	ErrParsingFailed      = errors.New("iap provider response parsing failed")
)

// Field names the canonical field being extracted when parsing fails.
type Field string

const (
	FieldExpirationDate   Field = "expiration date"
	FieldProductID        Field = "product id"
	FieldRenewable        Field = "renewable flag"
	FieldPurchaseToken    Field = "purchase token"
	FieldProviderResponse Field = "provider response"
)

// VerificationFailedError is returned when a provider rejects a receipt or
// could not be reached to validate it.
type VerificationFailedError struct {
	Provider Provider

	// Response is the provider's raw rejection payload, if one was returned.
	Response RawResponse

	Err error
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrVerificationFailed, e.Provider, e.Err)
}

func (e *VerificationFailedError) Unwrap() error {
	return e.Err
}

func (e *VerificationFailedError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// ParsingFailedError is returned when a provider response can't be normalized
// into a VerifiedSubscriptionInfo.
type ParsingFailedError struct {
	Provider Provider
	Field    Field
	Err      error
}

func (e *ParsingFailedError) Error() string {
	return fmt.Sprintf("%s: %s: failed to extract %s: %v", ErrParsingFailed, e.Provider, e.Field, e.Err)
}

func (e *ParsingFailedError) Unwrap() error {
	return e.Err
}

func (e *ParsingFailedError) Is(target error) bool {
	return target == ErrParsingFailed
}
