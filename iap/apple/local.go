package apple

import (
	"context"
	"crypto/x509"
	"strconv"

	"github.com/devsisters/go-applereceipt"
	"github.com/devsisters/go-applereceipt/applepki"
	"github.com/pkg/errors"

	"github.com/code-payments/iap-verifier/iap"
)

const localEnvironment = "Local"

// LocalValidator authenticates PKCS#7 app receipts against Apple's root
// certificates without calling the App Store.
//
// Decoded receipts carry no renewal information, so responses from this
// validator never have a pending_renewal_info list.
type LocalValidator struct {
	// BundleID is the bundle identifier receipts must have been issued for.
	bundleID string

	roots *x509.CertPool
}

func NewLocalValidator(bundleID string) *LocalValidator {
	return &LocalValidator{
		bundleID: bundleID,
		roots:    applepki.CertPool(),
	}
}

// Validate ignores the shared secret, it's only meaningful to the App Store.
func (v *LocalValidator) Validate(_ context.Context, encodedReceipt string, _ string, excludeOldTransactions bool) (iap.RawResponse, error) {
	receipt, err := applereceipt.DecodeBase64(encodedReceipt, v.roots)
	if err != nil {
		return nil, &StatusError{
			Status:   StatusReceiptUnauthenticated,
			Response: iap.RawResponse{"status": float64(StatusReceiptUnauthenticated), "exception": err.Error()},
		}
	}

	if receipt.BundleIdentifier != v.bundleID {
		return nil, errors.Errorf("receipt bundle id %q does not match %q", receipt.BundleIdentifier, v.bundleID)
	}

	// Only the latest transaction of each subscription is kept when old
	// transactions are excluded, same as the App Store.
	latest := make(map[string]int)
	var entries []map[string]any
	for _, purchase := range receipt.InAppPurchaseReceipts {
		if purchase.SubscriptionExpirationDate.IsZero() {
			continue
		}

		entry := map[string]any{
			"product_id":              purchase.ProductIdentifier,
			"transaction_id":          purchase.TransactionIdentifier,
			"original_transaction_id": purchase.OriginalTransactionIdentifier,
			"purchase_date_ms":        strconv.FormatInt(purchase.PurchaseDate.UnixMilli(), 10),
			"expires_date_ms":         strconv.FormatInt(purchase.SubscriptionExpirationDate.UnixMilli(), 10),
		}

		if !excludeOldTransactions {
			entries = append(entries, entry)
			continue
		}

		idx, ok := latest[purchase.OriginalTransactionIdentifier]
		if !ok {
			latest[purchase.OriginalTransactionIdentifier] = len(entries)
			entries = append(entries, entry)
			continue
		}
		if purchase.SubscriptionExpirationDate.UnixMilli() > mustExpiry(entries[idx]) {
			entries[idx] = entry
		}
	}

	return localResponse(receipt.BundleIdentifier, receipt.AppVersion, entries), nil
}

// localResponse renders decoded receipt entries in the verifyReceipt response
// shape. Numbers are float64, as they would be after decoding JSON.
func localResponse(bundleID, appVersion string, entries []map[string]any) iap.RawResponse {
	receiptInfo := make([]any, len(entries))
	for i, entry := range entries {
		receiptInfo[i] = entry
	}

	return iap.RawResponse{
		"status":      float64(StatusOK),
		"environment": localEnvironment,
		"receipt": map[string]any{
			"bundle_id":           bundleID,
			"application_version": appVersion,
		},
		"latest_receipt_info": receiptInfo,
	}
}

func mustExpiry(entry map[string]any) int64 {
	expiry, _ := iap.RequireInt64(entry, "expires_date_ms")
	return expiry
}
