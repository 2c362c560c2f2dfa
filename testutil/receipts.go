package testutil

import (
	"encoding/json"
	"strconv"
	"time"
)

// AppleReceiptInfo returns a latest_receipt_info entry. Like the App Store,
// timestamps are encoded as decimal strings.
func AppleReceiptInfo(productID, transactionID string, expires time.Time) map[string]any {
	return map[string]any{
		"product_id":              productID,
		"transaction_id":          transactionID,
		"original_transaction_id": transactionID,
		"purchase_date_ms":        strconv.FormatInt(expires.Add(-30*24*time.Hour).UnixMilli(), 10),
		"expires_date_ms":         strconv.FormatInt(expires.UnixMilli(), 10),
	}
}

// AppleRenewalInfo returns a pending_renewal_info entry.
func AppleRenewalInfo(productID string, autoRenew bool) map[string]any {
	status := "0"
	if autoRenew {
		status = "1"
	}
	return map[string]any{
		"product_id":              productID,
		"auto_renew_product_id":   productID,
		"original_transaction_id": "1000000000000000",
		"auto_renew_status":       status,
	}
}

// AppleResponse returns a verifyReceipt response. The pending_renewal_info
// key is omitted when renewals is nil.
func AppleResponse(latest []map[string]any, renewals []map[string]any) map[string]any {
	response := map[string]any{
		"status":              float64(0),
		"environment":         "Sandbox",
		"latest_receipt_info": toList(latest),
	}
	if renewals != nil {
		response["pending_renewal_info"] = toList(renewals)
	}
	return response
}

// GoogleResponse returns a subscription purchase as rendered by the Google
// Play Developer API, plus the identifiers it was looked up by.
func GoogleResponse(productID, purchaseToken string, expires time.Time, autoRenewing bool) map[string]any {
	return map[string]any{
		"kind":             "androidpublisher#subscriptionPurchase",
		"startTimeMillis":  strconv.FormatInt(expires.Add(-30*24*time.Hour).UnixMilli(), 10),
		"expiryTimeMillis": strconv.FormatInt(expires.UnixMilli(), 10),
		"autoRenewing":     autoRenewing,
		"paymentState":     float64(1),
		"orderId":          "GPA.3333-4444-5555-66666",
		"productId":        productID,
		"purchaseToken":    purchaseToken,
	}
}

// GoogleReceipt returns the JSON receipt an Android client sends.
func GoogleReceipt(productID, purchaseToken string) string {
	encoded, err := json.Marshal(map[string]string{
		"productId":     productID,
		"purchaseToken": purchaseToken,
		"packageName":   "xyz.flipchat.app",
	})
	if err != nil {
		panic(err)
	}
	return string(encoded)
}

func toList(entries []map[string]any) []any {
	list := make([]any, len(entries))
	for i, entry := range entries {
		list[i] = entry
	}
	return list
}
