package iap

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
	"unicode/utf8"
)

// RawResponse is the unmodified mapping returned by a provider's validation
// endpoint.
type RawResponse map[string]any

// Clone returns a deep copy of the response, including nested maps and slices.
func (r RawResponse) Clone() RawResponse {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case RawResponse:
		return RawResponse(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		cloned := make(map[string]any, len(t))
		for k, val := range t {
			cloned[k] = cloneValue(val)
		}
		return cloned
	case []any:
		cloned := make([]any, len(t))
		for i, val := range t {
			cloned[i] = cloneValue(val)
		}
		return cloned
	case []map[string]any:
		cloned := make([]map[string]any, len(t))
		for i, val := range t {
			cloned[i] = cloneValue(val).(map[string]any)
		}
		return cloned
	default:
		return v
	}
}

// VerifiedSubscriptionInfo is the canonical subscription record, regardless of
// which provider verified it.
type VerifiedSubscriptionInfo struct {
	ProductID      string    `json:"product_id"`
	PurchaseToken  string    `json:"purchase_token"`
	ExpirationDate time.Time `json:"expiration_date"`
	IsRenewable    bool      `json:"is_renewable"`
}

func (i *VerifiedSubscriptionInfo) Clone() *VerifiedSubscriptionInfo {
	cloned := *i
	return &cloned
}

// ProcessedReceipt is the result of verifying and parsing a receipt.
//
// Receipt and ProviderResponse are JSON encodings of the input receipt string
// and the raw provider response. They're kept for audit and replay only.
//
// A receipt that isn't valid UTF-8 can't be a JSON string without losing
// bytes, so it's stored as {"bytes": "<base64>"} instead.
type ProcessedReceipt struct {
	Provider         Provider                  `json:"provider"`
	SubscriptionInfo *VerifiedSubscriptionInfo `json:"subscription_info"`
	Receipt          []byte                    `json:"receipt"`
	ProviderResponse []byte                    `json:"provider_response"`
}

func NewProcessedReceipt(provider Provider, info *VerifiedSubscriptionInfo, receipt string, response RawResponse) (*ProcessedReceipt, error) {
	encodedReceipt, err := encodeReceipt(receipt)
	if err != nil {
		return nil, err
	}
	encodedResponse, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}

	return &ProcessedReceipt{
		Provider:         provider,
		SubscriptionInfo: info,
		Receipt:          encodedReceipt,
		ProviderResponse: encodedResponse,
	}, nil
}

type binaryReceipt struct {
	Bytes []byte `json:"bytes"`
}

func encodeReceipt(receipt string) ([]byte, error) {
	if utf8.ValidString(receipt) {
		return json.Marshal(receipt)
	}
	return json.Marshal(&binaryReceipt{Bytes: []byte(receipt)})
}

// DecodeReceipt returns the original receipt string.
func (r *ProcessedReceipt) DecodeReceipt() (string, error) {
	var receipt string
	if err := json.Unmarshal(r.Receipt, &receipt); err == nil {
		return receipt, nil
	}

	var binary binaryReceipt
	if err := json.Unmarshal(r.Receipt, &binary); err != nil {
		return "", err
	}
	return string(binary.Bytes), nil
}

// DecodeProviderResponse returns the raw provider response.
func (r *ProcessedReceipt) DecodeProviderResponse() (RawResponse, error) {
	var response RawResponse
	if err := json.Unmarshal(r.ProviderResponse, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// ReceiptID returns a stable identifier for the receipt, suitable for audit
// logs and deduplication.
func (r *ProcessedReceipt) ReceiptID() (string, error) {
	receipt, err := r.DecodeReceipt()
	if err != nil {
		return "", err
	}
	return GetReceiptID(receipt), nil
}

// GetReceiptID returns the hex encoded SHA-256 of a receipt.
func GetReceiptID(receipt string) string {
	hasher := sha256.New()
	hasher.Write([]byte(receipt))
	return hex.EncodeToString(hasher.Sum(nil))
}

// MarshalJSON renders the provider as its tag.
func (p Provider) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseProvider(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
