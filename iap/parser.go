package iap

import "time"

// Parser extracts the canonical subscription fields from a provider's raw
// response. Implementations must not mutate the response.
type Parser interface {
	Provider() Provider

	DetectExpirationDate(response RawResponse) (time.Time, error)
	DetectProductID(response RawResponse) (string, error)
	DetectIsRenewable(response RawResponse) (bool, error)
	DetectPurchaseToken(response RawResponse) (string, error)
}

// Parse runs every extraction step of the parser, in order, and assembles the
// canonical record. The first failing step is reported as a
// *ParsingFailedError naming the field.
func Parse(p Parser, response RawResponse) (*VerifiedSubscriptionInfo, error) {
	var info VerifiedSubscriptionInfo
	var err error

	info.ExpirationDate, err = p.DetectExpirationDate(response)
	if err != nil {
		return nil, &ParsingFailedError{Provider: p.Provider(), Field: FieldExpirationDate, Err: err}
	}

	info.ProductID, err = p.DetectProductID(response)
	if err != nil {
		return nil, &ParsingFailedError{Provider: p.Provider(), Field: FieldProductID, Err: err}
	}

	info.IsRenewable, err = p.DetectIsRenewable(response)
	if err != nil {
		return nil, &ParsingFailedError{Provider: p.Provider(), Field: FieldRenewable, Err: err}
	}

	info.PurchaseToken, err = p.DetectPurchaseToken(response)
	if err != nil {
		return nil, &ParsingFailedError{Provider: p.Provider(), Field: FieldPurchaseToken, Err: err}
	}

	return &info, nil
}
