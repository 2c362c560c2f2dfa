package google

import (
	"time"

	"github.com/code-payments/iap-verifier/iap"
)

// Parser normalizes Google Play subscription purchases.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Provider() iap.Provider {
	return iap.ProviderGoogle
}

// DetectExpirationDate truncates expiryTimeMillis to whole seconds.
func (p *Parser) DetectExpirationDate(response iap.RawResponse) (time.Time, error) {
	ms, err := iap.RequireInt64(response, "expiryTimeMillis")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ms/1000, 0).UTC(), nil
}

func (p *Parser) DetectProductID(response iap.RawResponse) (string, error) {
	return iap.RequireString(response, "productId")
}

func (p *Parser) DetectIsRenewable(response iap.RawResponse) (bool, error) {
	return iap.RequireBool(response, "autoRenewing")
}

func (p *Parser) DetectPurchaseToken(response iap.RawResponse) (string, error) {
	return iap.RequireString(response, "purchaseToken")
}
