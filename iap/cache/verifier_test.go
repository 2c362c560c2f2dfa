package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/google"
	"github.com/code-payments/iap-verifier/iap/memory"
	"github.com/code-payments/iap-verifier/iap/tests"
	"github.com/code-payments/iap-verifier/testutil"
)

func newGoogleVerifier(t *testing.T) (*memory.GoogleValidator, iap.Verifier) {
	validator := memory.NewGoogleValidator()
	verifier, err := google.NewVerifier(zap.Must(zap.NewDevelopment()), &google.Config{BundleID: "xyz.flipchat.app"}, validator)
	require.NoError(t, err)
	return validator, verifier
}

func TestCachedVerifier(t *testing.T) {
	validator, verifier := newGoogleVerifier(t)
	cached := NewInCache(verifier, time.Minute)
	defer cached.Close()

	var tokens int
	messageGenerator := func() string {
		return "flipchat.monthly"
	}
	validReceiptFunc := func(productID string) string {
		tokens++
		token := "token-" + strconv.Itoa(tokens)
		validator.AddPurchase(productID, token, testutil.GoogleResponse(productID, token, time.Now().Add(time.Hour), true))
		return testutil.GoogleReceipt(productID, token)
	}

	tests.RunGenericVerifierTests(t, cached, messageGenerator, validReceiptFunc, func() {})
}

func TestCachedVerifier_Hit(t *testing.T) {
	ctx := context.Background()
	validator, verifier := newGoogleVerifier(t)
	cached := NewInCache(verifier, time.Minute)
	defer cached.Close()

	require.Equal(t, iap.ProviderGoogle, cached.Provider())

	expected := testutil.GoogleResponse("flipchat.monthly", "token", time.Now().Add(time.Hour), true)
	validator.AddPurchase("flipchat.monthly", "token", expected)
	receipt := testutil.GoogleReceipt("flipchat.monthly", "token")

	first, err := cached.Verify(ctx, receipt)
	require.NoError(t, err)
	require.EqualValues(t, expected, first)

	// Mutating a returned response must not leak into the cache.
	first["autoRenewing"] = false

	second, err := cached.Verify(ctx, receipt)
	require.NoError(t, err)
	require.EqualValues(t, expected, second)

	require.Equal(t, 1, validator.Calls())
}

func TestCachedVerifier_FailuresNotCached(t *testing.T) {
	ctx := context.Background()
	validator, verifier := newGoogleVerifier(t)
	cached := NewInCache(verifier, time.Minute)
	defer cached.Close()

	receipt := testutil.GoogleReceipt("flipchat.monthly", "token")

	_, err := cached.Verify(ctx, receipt)
	require.ErrorIs(t, err, iap.ErrVerificationFailed)
	require.Equal(t, 1, validator.Calls())

	validator.AddPurchase("flipchat.monthly", "token", testutil.GoogleResponse("flipchat.monthly", "token", time.Now().Add(time.Hour), true))

	_, err = cached.Verify(ctx, receipt)
	require.NoError(t, err)
	require.Equal(t, 2, validator.Calls())
}

func TestCachedVerifier_Expiry(t *testing.T) {
	ctx := context.Background()
	validator, verifier := newGoogleVerifier(t)
	cached := NewInCache(verifier, 50*time.Millisecond)
	defer cached.Close()

	validator.AddPurchase("flipchat.monthly", "token", testutil.GoogleResponse("flipchat.monthly", "token", time.Now().Add(time.Hour), true))
	receipt := testutil.GoogleReceipt("flipchat.monthly", "token")

	_, err := cached.Verify(ctx, receipt)
	require.NoError(t, err)

	_, err = cached.Verify(ctx, receipt)
	require.NoError(t, err)
	require.Equal(t, 1, validator.Calls())

	time.Sleep(150 * time.Millisecond)

	_, err = cached.Verify(ctx, receipt)
	require.NoError(t, err)
	require.Equal(t, 2, validator.Calls())
}

func TestCachedVerifier_Close(t *testing.T) {
	ctx := context.Background()
	validator, verifier := newGoogleVerifier(t)
	cached := NewInCache(verifier, time.Minute)

	validator.AddPurchase("flipchat.monthly", "token", testutil.GoogleResponse("flipchat.monthly", "token", time.Now().Add(time.Hour), true))
	receipt := testutil.GoogleReceipt("flipchat.monthly", "token")

	_, err := cached.Verify(ctx, receipt)
	require.NoError(t, err)
	require.Equal(t, 1, validator.Calls())

	require.NoError(t, cached.Close())
	require.NoError(t, cached.Close())

	// Closed caches pass every request through.
	for i := 0; i < 2; i++ {
		response, err := cached.Verify(ctx, receipt)
		require.NoError(t, err)
		require.Equal(t, "token", response["purchaseToken"])
	}
	require.Equal(t, 3, validator.Calls())
}
