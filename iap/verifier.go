package iap

import "context"

type Verifier interface {
	// Provider returns the provider this verifier validates receipts against.
	Provider() Provider

	// Verify hands the receipt to the provider's validator and returns the raw
	// response. Every provider specific failure is returned as a
	// *VerificationFailedError.
	Verify(ctx context.Context, receipt string) (RawResponse, error)
}
