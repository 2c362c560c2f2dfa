package apple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/iap-verifier/iap"
)

const (
	ProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"

	defaultTimeout = 15 * time.Second
)

// App Store verifyReceipt status codes.
const (
	StatusOK                         = 0
	StatusMalformedRequest           = 21000
	StatusMalformedReceipt           = 21002
	StatusReceiptUnauthenticated     = 21003
	StatusSharedSecretMismatch       = 21004
	StatusServerUnavailable          = 21005
	StatusSubscriptionExpired        = 21006
	StatusSandboxReceiptInProduction = 21007
	StatusProductionReceiptInSandbox = 21008
	StatusInternalDataAccessError    = 21009
	StatusAccountNotFound            = 21010
)

var statusDescriptions = map[int]string{
	StatusMalformedRequest:           "request to the app store was not made using the http post method",
	StatusMalformedReceipt:           "receipt data was malformed or missing",
	StatusReceiptUnauthenticated:     "receipt could not be authenticated",
	StatusSharedSecretMismatch:       "shared secret does not match the account's shared secret",
	StatusServerUnavailable:          "receipt server is not currently available",
	StatusSubscriptionExpired:        "receipt is valid but the subscription has expired",
	StatusSandboxReceiptInProduction: "receipt is from the test environment but was sent to production",
	StatusProductionReceiptInSandbox: "receipt is from the production environment but was sent to the test environment",
	StatusInternalDataAccessError:    "internal data access error",
	StatusAccountNotFound:            "user account cannot be found or has been deleted",
}

// Validator is the external App Store validation collaborator.
type Validator interface {
	Validate(ctx context.Context, receipt string, sharedSecret string, excludeOldTransactions bool) (iap.RawResponse, error)
}

// StatusError is returned when the App Store rejects a receipt.
type StatusError struct {
	Status   int
	Response iap.RawResponse
}

func (e *StatusError) Error() string {
	desc, ok := statusDescriptions[e.Status]
	if !ok {
		desc = "unknown status"
	}
	return fmt.Sprintf("app store status %d: %s", e.Status, desc)
}

// StoreValidator validates receipts with the App Store verifyReceipt endpoint.
type StoreValidator struct {
	client        *http.Client
	productionURL string
	sandboxURL    string

	sandbox   bool
	autoRetry bool
}

type StoreOption func(v *StoreValidator)

func WithHTTPClient(client *http.Client) StoreOption {
	return func(v *StoreValidator) {
		v.client = client
	}
}

// WithEndpoints overrides the production and sandbox verifyReceipt URLs.
func WithEndpoints(productionURL, sandboxURL string) StoreOption {
	return func(v *StoreValidator) {
		v.productionURL = productionURL
		v.sandboxURL = sandboxURL
	}
}

func NewStoreValidator(cfg *Config, opts ...StoreOption) *StoreValidator {
	v := &StoreValidator{
		client:        &http.Client{Timeout: defaultTimeout},
		productionURL: ProductionURL,
		sandboxURL:    SandboxURL,
		sandbox:       cfg.Sandbox,
		autoRetry:     cfg.AutoRetryWrongEnvRequest,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type verifyReceiptRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

func (v *StoreValidator) Validate(ctx context.Context, receipt string, sharedSecret string, excludeOldTransactions bool) (iap.RawResponse, error) {
	req := &verifyReceiptRequest{
		ReceiptData:            receipt,
		Password:               sharedSecret,
		ExcludeOldTransactions: excludeOldTransactions,
	}

	url := v.productionURL
	if v.sandbox {
		url = v.sandboxURL
	}

	response, status, err := v.send(ctx, url, req)
	if err != nil {
		return nil, err
	}

	if v.autoRetry {
		switch {
		case status == StatusSandboxReceiptInProduction && !v.sandbox:
			response, status, err = v.send(ctx, v.sandboxURL, req)
		case status == StatusProductionReceiptInSandbox && v.sandbox:
			response, status, err = v.send(ctx, v.productionURL, req)
		}
		if err != nil {
			return nil, err
		}
	}

	if status != StatusOK {
		return nil, &StatusError{Status: status, Response: response}
	}

	return response, nil
}

func (v *StoreValidator) send(ctx context.Context, url string, body *verifyReceiptRequest) (iap.RawResponse, int, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("non-200 status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	var response iap.RawResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, 0, errors.Wrap(err, "failed to unmarshal response")
	}

	status, err := iap.RequireInt64(response, "status")
	if err != nil {
		return nil, 0, errors.Wrap(err, "response has no status")
	}

	return response, int(status), nil
}
