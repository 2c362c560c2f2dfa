package apple

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/tests"
	"github.com/code-payments/iap-verifier/testutil"
)

var (
	oldExpiry = time.Date(2024, 5, 1, 10, 30, 0, 123_000_000, time.UTC)
	newExpiry = time.Date(2024, 6, 1, 10, 30, 0, 456_000_000, time.UTC)
)

func historyResponse() iap.RawResponse {
	return testutil.AppleResponse(
		[]map[string]any{
			testutil.AppleReceiptInfo("old", "A", oldExpiry),
			testutil.AppleReceiptInfo("new", "B", newExpiry),
		},
		[]map[string]any{
			testutil.AppleRenewalInfo("new", true),
			testutil.AppleRenewalInfo("old", false),
		},
	)
}

func TestParser(t *testing.T) {
	tests.RunGenericParserTests(t, NewParser(), historyResponse(), &iap.VerifiedSubscriptionInfo{
		ProductID:      "new",
		PurchaseToken:  "B",
		ExpirationDate: newExpiry,
		IsRenewable:    true,
	})
}

func TestParser_PicksLatestRegardlessOfOrder(t *testing.T) {
	response := testutil.AppleResponse(
		[]map[string]any{
			testutil.AppleReceiptInfo("new", "B", newExpiry),
			testutil.AppleReceiptInfo("old", "A", oldExpiry),
		},
		[]map[string]any{
			testutil.AppleRenewalInfo("old", true),
			testutil.AppleRenewalInfo("new", false),
		},
	)

	info, err := iap.Parse(NewParser(), response)
	require.NoError(t, err)
	require.Equal(t, "new", info.ProductID)
	require.Equal(t, "B", info.PurchaseToken)
	require.Equal(t, newExpiry, info.ExpirationDate)
	require.False(t, info.IsRenewable)
}

func TestParser_Tie(t *testing.T) {
	response := testutil.AppleResponse(
		[]map[string]any{
			testutil.AppleReceiptInfo("first", "A", newExpiry),
			testutil.AppleReceiptInfo("second", "B", newExpiry),
		},
		nil,
	)

	for i := 0; i < 3; i++ {
		info, err := iap.Parse(NewParser(), response)
		require.NoError(t, err)
		require.Equal(t, "first", info.ProductID)
		require.Equal(t, "A", info.PurchaseToken)
	}
}

func TestParser_NumericTimestamps(t *testing.T) {
	entry := testutil.AppleReceiptInfo("new", "B", newExpiry)
	entry["expires_date_ms"] = float64(newExpiry.UnixMilli())
	response := testutil.AppleResponse([]map[string]any{entry}, nil)

	info, err := iap.Parse(NewParser(), response)
	require.NoError(t, err)
	require.Equal(t, newExpiry, info.ExpirationDate)
}

func TestParser_MissingRenewalInfo(t *testing.T) {
	latest := []map[string]any{testutil.AppleReceiptInfo("new", "B", newExpiry)}

	for name, response := range map[string]iap.RawResponse{
		"absent": testutil.AppleResponse(latest, nil),
		"empty":  testutil.AppleResponse(latest, []map[string]any{}),
		"null": func() iap.RawResponse {
			r := testutil.AppleResponse(latest, nil)
			r["pending_renewal_info"] = nil
			return r
		}(),
		"no match": testutil.AppleResponse(latest, []map[string]any{testutil.AppleRenewalInfo("other", true)}),
	} {
		t.Run(name, func(t *testing.T) {
			info, err := iap.Parse(NewParser(), response)
			require.NoError(t, err)
			require.False(t, info.IsRenewable)
		})
	}
}

func TestParser_Failures(t *testing.T) {
	valid := func() iap.RawResponse {
		return historyResponse()
	}

	for _, tc := range []struct {
		name   string
		mutate func(r iap.RawResponse)
		field  iap.Field
	}{
		{
			name:   "no history",
			mutate: func(r iap.RawResponse) { delete(r, "latest_receipt_info") },
			field:  iap.FieldExpirationDate,
		},
		{
			name:   "empty history",
			mutate: func(r iap.RawResponse) { r["latest_receipt_info"] = []any{} },
			field:  iap.FieldExpirationDate,
		},
		{
			name: "entry without expiry",
			mutate: func(r iap.RawResponse) {
				delete(r["latest_receipt_info"].([]any)[0].(map[string]any), "expires_date_ms")
			},
			field: iap.FieldExpirationDate,
		},
		{
			name: "malformed expiry",
			mutate: func(r iap.RawResponse) {
				r["latest_receipt_info"].([]any)[1].(map[string]any)["expires_date_ms"] = "tomorrow"
			},
			field: iap.FieldExpirationDate,
		},
		{
			name: "latest without product id",
			mutate: func(r iap.RawResponse) {
				delete(r["latest_receipt_info"].([]any)[1].(map[string]any), "product_id")
			},
			field: iap.FieldProductID,
		},
		{
			name: "latest without transaction id",
			mutate: func(r iap.RawResponse) {
				delete(r["latest_receipt_info"].([]any)[1].(map[string]any), "transaction_id")
			},
			field: iap.FieldPurchaseToken,
		},
		{
			name:   "renewal info not a list",
			mutate: func(r iap.RawResponse) { r["pending_renewal_info"] = "1" },
			field:  iap.FieldRenewable,
		},
		{
			name: "renewal entry without product id",
			mutate: func(r iap.RawResponse) {
				delete(r["pending_renewal_info"].([]any)[0].(map[string]any), "product_id")
			},
			field: iap.FieldRenewable,
		},
		{
			name: "matching renewal entry without status",
			mutate: func(r iap.RawResponse) {
				delete(r["pending_renewal_info"].([]any)[0].(map[string]any), "auto_renew_status")
			},
			field: iap.FieldRenewable,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			response := valid()
			tc.mutate(response)

			_, err := iap.Parse(NewParser(), response)
			require.ErrorIs(t, err, iap.ErrParsingFailed)

			var failure *iap.ParsingFailedError
			require.ErrorAs(t, err, &failure)
			require.Equal(t, iap.ProviderApple, failure.Provider)
			require.Equal(t, tc.field, failure.Field)
		})
	}
}

func TestParser_RenewableChainedFailure(t *testing.T) {
	response := historyResponse()
	delete(response["latest_receipt_info"].([]any)[1].(map[string]any), "product_id")

	_, err := NewParser().DetectIsRenewable(response)
	require.Error(t, err)
	require.ErrorIs(t, err, iap.ErrMissingValue)
	require.Contains(t, err.Error(), "failed to detect product id")
}

func TestLatestReceipt_DoesNotMutate(t *testing.T) {
	response := testutil.AppleResponse(
		[]map[string]any{
			testutil.AppleReceiptInfo("new", "B", newExpiry),
			testutil.AppleReceiptInfo("old", "A", oldExpiry),
		},
		nil,
	)
	original := iap.RawResponse(response).Clone()

	latest, err := LatestReceipt(response)
	require.NoError(t, err)
	require.Equal(t, "B", latest["transaction_id"])
	require.Equal(t, original, iap.RawResponse(response))
}
