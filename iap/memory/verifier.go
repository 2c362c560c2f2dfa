package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/api/googleapi"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/apple"
)

// AppleValidator is an in-memory App Store. Receipts are valid if they were
// registered with AddReceipt, anything else is rejected the way the App Store
// rejects receipts it can't authenticate.
type AppleValidator struct {
	mu        sync.RWMutex
	responses map[string]iap.RawResponse
	calls     int
}

func NewAppleValidator() *AppleValidator {
	return &AppleValidator{
		responses: make(map[string]iap.RawResponse),
	}
}

func (v *AppleValidator) AddReceipt(receipt string, response iap.RawResponse) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.responses[receipt] = response.Clone()
}

func (v *AppleValidator) Validate(_ context.Context, receipt string, _ string, _ bool) (iap.RawResponse, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.calls++

	response, ok := v.responses[receipt]
	if !ok {
		return nil, &apple.StatusError{
			Status:   apple.StatusReceiptUnauthenticated,
			Response: iap.RawResponse{"status": float64(apple.StatusReceiptUnauthenticated)},
		}
	}
	return response.Clone(), nil
}

// Calls returns the number of Validate calls made so far.
func (v *AppleValidator) Calls() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.calls
}

func (v *AppleValidator) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.responses = make(map[string]iap.RawResponse)
	v.calls = 0
}

// GoogleValidator is an in-memory Google Play Developer API. Purchases are
// valid if they were registered with AddPurchase, anything else is rejected
// with a not found API error.
type GoogleValidator struct {
	mu        sync.RWMutex
	purchases map[string]iap.RawResponse
	calls     int
}

func NewGoogleValidator() *GoogleValidator {
	return &GoogleValidator{
		purchases: make(map[string]iap.RawResponse),
	}
}

func (v *GoogleValidator) AddPurchase(productID, purchaseToken string, response iap.RawResponse) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.purchases[purchaseKey(productID, purchaseToken)] = response.Clone()
}

func (v *GoogleValidator) Validate(_ context.Context, purchaseToken string, productID string) (iap.RawResponse, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.calls++

	response, ok := v.purchases[purchaseKey(productID, purchaseToken)]
	if !ok {
		return nil, &googleapi.Error{
			Code:    http.StatusNotFound,
			Message: "The purchase token was not found.",
			Body:    `{"error":{"code":404,"message":"The purchase token was not found.","status":"NOT_FOUND"}}`,
		}
	}
	return response.Clone(), nil
}

// Calls returns the number of Validate calls made so far.
func (v *GoogleValidator) Calls() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.calls
}

func (v *GoogleValidator) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.purchases = make(map[string]iap.RawResponse)
	v.calls = 0
}

func purchaseKey(productID, purchaseToken string) string {
	return fmt.Sprintf("%s|%s", productID, purchaseToken)
}
