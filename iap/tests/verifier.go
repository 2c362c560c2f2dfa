package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/iap-verifier/iap"
)

// MessageGenerator returns the product a valid receipt should be issued for.
type MessageGenerator func() string

// ValidReceiptFromMessage returns a receipt the verifier under test accepts
// for the given product.
type ValidReceiptFromMessage func(message string) string

func RunGenericVerifierTests(t *testing.T, v iap.Verifier, msgGen MessageGenerator, validReceiptFunc ValidReceiptFromMessage, teardown func()) {
	for _, testFunc := range []func(t *testing.T, v iap.Verifier, msgGen MessageGenerator, validReceiptFunc ValidReceiptFromMessage){
		testValidReceipt,
		testInvalidReceipt,
		testEmptyReceipt,
	} {
		testFunc(t, v, msgGen, validReceiptFunc)
		teardown()
	}
}

func testValidReceipt(t *testing.T, v iap.Verifier, msgGen MessageGenerator, validReceiptFunc ValidReceiptFromMessage) {
	ctx := context.Background()

	message := msgGen()
	validReceipt := validReceiptFunc(message)

	response, err := v.Verify(ctx, validReceipt)
	require.NoError(t, err)
	require.NotEmpty(t, response)
}

func testInvalidReceipt(t *testing.T, v iap.Verifier, msgGen MessageGenerator, validReceiptFunc ValidReceiptFromMessage) {
	ctx := context.Background()

	// Just use the word "invalid" as an invalid receipt.
	_, err := v.Verify(ctx, "invalid")
	requireVerificationFailed(t, v, err)
}

func testEmptyReceipt(t *testing.T, v iap.Verifier, msgGen MessageGenerator, validReceiptFunc ValidReceiptFromMessage) {
	_, err := v.Verify(context.Background(), "")
	requireVerificationFailed(t, v, err)
}

func requireVerificationFailed(t *testing.T, v iap.Verifier, err error) {
	require.ErrorIs(t, err, iap.ErrVerificationFailed)

	var failure *iap.VerificationFailedError
	require.True(t, errors.As(err, &failure))
	require.Equal(t, v.Provider(), failure.Provider)
	require.Error(t, failure.Err)
}
