package tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/iap-verifier/iap"
)

// RunGenericParserTests checks the parser against a well formed response and
// the record it should produce.
func RunGenericParserTests(t *testing.T, p iap.Parser, valid iap.RawResponse, expected *iap.VerifiedSubscriptionInfo) {
	for _, tf := range []func(t *testing.T, p iap.Parser, valid iap.RawResponse, expected *iap.VerifiedSubscriptionInfo){
		testParseValidResponse,
		testParseIsIdempotent,
		testParseEmptyResponse,
		testParseNilResponse,
	} {
		tf(t, p, valid, expected)
	}
}

func testParseValidResponse(t *testing.T, p iap.Parser, valid iap.RawResponse, expected *iap.VerifiedSubscriptionInfo) {
	actual, err := iap.Parse(p, valid)
	require.NoError(t, err)
	require.Equal(t, expected.ProductID, actual.ProductID)
	require.Equal(t, expected.PurchaseToken, actual.PurchaseToken)
	require.True(t, expected.ExpirationDate.Equal(actual.ExpirationDate), "%v != %v", expected.ExpirationDate, actual.ExpirationDate)
	require.Equal(t, expected.IsRenewable, actual.IsRenewable)
}

func testParseIsIdempotent(t *testing.T, p iap.Parser, valid iap.RawResponse, _ *iap.VerifiedSubscriptionInfo) {
	original := valid.Clone()

	first, err := iap.Parse(p, valid)
	require.NoError(t, err)
	second, err := iap.Parse(p, valid)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, original, valid)
}

func testParseEmptyResponse(t *testing.T, p iap.Parser, _ iap.RawResponse, _ *iap.VerifiedSubscriptionInfo) {
	_, err := iap.Parse(p, iap.RawResponse{})
	requireParsingFailed(t, p, err)
}

func testParseNilResponse(t *testing.T, p iap.Parser, _ iap.RawResponse, _ *iap.VerifiedSubscriptionInfo) {
	_, err := iap.Parse(p, nil)
	requireParsingFailed(t, p, err)
}

func requireParsingFailed(t *testing.T, p iap.Parser, err error) {
	require.ErrorIs(t, err, iap.ErrParsingFailed)

	var failure *iap.ParsingFailedError
	require.True(t, errors.As(err, &failure))
	require.Equal(t, p.Provider(), failure.Provider)
	require.NotEmpty(t, failure.Field)
}
