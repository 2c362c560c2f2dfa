package apple

import (
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/iap-verifier/iap"
)

const autoRenewOn = "1"

// Parser normalizes App Store verifyReceipt responses.
//
// Subscription details are read from the most recent entry of
// latest_receipt_info, the one expiring last.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Provider() iap.Provider {
	return iap.ProviderApple
}

func (p *Parser) DetectExpirationDate(response iap.RawResponse) (time.Time, error) {
	latest, err := LatestReceipt(response)
	if err != nil {
		return time.Time{}, err
	}

	ms, err := iap.RequireInt64(latest, "expires_date_ms")
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (p *Parser) DetectProductID(response iap.RawResponse) (string, error) {
	latest, err := LatestReceipt(response)
	if err != nil {
		return "", err
	}
	return iap.RequireString(latest, "product_id")
}

// DetectIsRenewable reads the auto renew status of the latest product from
// pending_renewal_info. Missing renewal info, or none for the latest product,
// means the subscription isn't renewable.
func (p *Parser) DetectIsRenewable(response iap.RawResponse) (bool, error) {
	renewals, err := iap.OptionalList(response, "pending_renewal_info")
	if err != nil {
		return false, err
	}
	if len(renewals) == 0 {
		return false, nil
	}

	productID, err := p.DetectProductID(response)
	if err != nil {
		return false, errors.Wrap(err, "failed to detect product id")
	}

	for _, renewal := range renewals {
		renewalProductID, err := iap.RequireString(renewal, "product_id")
		if err != nil {
			return false, err
		}
		if renewalProductID != productID {
			continue
		}

		status, err := iap.RequireString(renewal, "auto_renew_status")
		if err != nil {
			return false, err
		}
		return status == autoRenewOn, nil
	}

	return false, nil
}

func (p *Parser) DetectPurchaseToken(response iap.RawResponse) (string, error) {
	latest, err := LatestReceipt(response)
	if err != nil {
		return "", err
	}
	return iap.RequireString(latest, "transaction_id")
}

// LatestReceipt returns the latest_receipt_info entry with the greatest
// expires_date_ms. The first such entry wins ties. The response isn't
// modified.
func LatestReceipt(response iap.RawResponse) (map[string]any, error) {
	entries, err := iap.RequireList(response, "latest_receipt_info")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("latest_receipt_info is empty")
	}

	var latest map[string]any
	var latestExpiry int64
	for i, entry := range entries {
		expiry, err := iap.RequireInt64(entry, "expires_date_ms")
		if err != nil {
			return nil, errors.Wrapf(err, "latest_receipt_info[%d]", i)
		}
		if latest == nil || expiry > latestExpiry {
			latest = entry
			latestExpiry = expiry
		}
	}

	return latest, nil
}
