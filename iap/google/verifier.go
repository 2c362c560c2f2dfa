package google

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/code-payments/iap-verifier/iap"
)

// Receipt is the purchase payload an Android client sends for verification.
type Receipt struct {
	PurchaseToken string `json:"purchaseToken"`
	ProductID     string `json:"productId"`
}

// DecodeReceipt decodes a JSON encoded receipt. Both the purchase token and
// the product id are required.
func DecodeReceipt(receipt string) (*Receipt, error) {
	var decoded Receipt
	if err := json.Unmarshal([]byte(receipt), &decoded); err != nil {
		return nil, errors.Wrap(err, "receipt is not valid json")
	}
	if decoded.PurchaseToken == "" {
		return nil, errors.New("receipt has no purchaseToken")
	}
	if decoded.ProductID == "" {
		return nil, errors.New("receipt has no productId")
	}
	return &decoded, nil
}

type Verifier struct {
	log       *zap.Logger
	config    *Config
	validator Validator
}

func NewVerifier(log *zap.Logger, cfg *Config, validator Validator) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.Wrap(iap.ErrConfigurationMissing, "google")
	}
	if validator == nil {
		return nil, errors.New("google verifier requires a validator")
	}

	return &Verifier{
		log: log.With(
			zap.String("provider", iap.ProviderGoogle.String()),
			zap.String("package_name", cfg.BundleID),
		),
		config:    cfg,
		validator: validator,
	}, nil
}

func (v *Verifier) Provider() iap.Provider {
	return iap.ProviderGoogle
}

func (v *Verifier) Verify(ctx context.Context, receipt string) (iap.RawResponse, error) {
	decoded, err := DecodeReceipt(receipt)
	if err != nil {
		v.log.Warn("Failed to decode receipt", zap.Error(err))
		return nil, &iap.VerificationFailedError{Provider: iap.ProviderGoogle, Err: err}
	}

	response, err := v.validator.Validate(ctx, decoded.PurchaseToken, decoded.ProductID)
	if err != nil {
		failure := &iap.VerificationFailedError{
			Provider: iap.ProviderGoogle,
			Err:      err,
		}

		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			failure.Response = apiErrorResponse(apiErr)
		}

		v.log.Warn("Purchase validation failed",
			zap.Error(err),
			zap.String("product_id", decoded.ProductID),
			zap.Any("response", failure.Response),
		)
		return nil, failure
	}

	return response, nil
}

func apiErrorResponse(apiErr *googleapi.Error) iap.RawResponse {
	var response iap.RawResponse
	if apiErr.Body != "" && json.Unmarshal([]byte(apiErr.Body), &response) == nil {
		return response
	}
	return iap.RawResponse{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	}
}
