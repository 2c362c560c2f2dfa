package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/option/internaloption"
	htransport "google.golang.org/api/transport/http"

	"github.com/code-payments/iap-verifier/iap"
)

const (
	defaultEndpoint  = "https://androidpublisher.googleapis.com/"
	subscriptionPath = "androidpublisher/v3/applications/{packageName}/purchases/subscriptions/{subscriptionId}/tokens/{token}"
)

// Validator is the external Google Play validation collaborator.
type Validator interface {
	// Validate looks up the subscription purchase identified by the token.
	Validate(ctx context.Context, purchaseToken string, productID string) (iap.RawResponse, error)
}

// PublisherValidator uses the Google Play Developer API to look up
// subscription purchases.
//
// Responses are decoded from the HTTP body as is. Going through the generated
// SubscriptionPurchase type would drop fields set to their zero value, such as
// autoRenewing false.
type PublisherValidator struct {
	// PackageName is the Android app's package name.
	packageName string

	client   *http.Client
	basePath string
}

func NewPublisherValidator(ctx context.Context, packageName string, opts ...option.ClientOption) (*PublisherValidator, error) {
	opts = append([]option.ClientOption{
		internaloption.WithDefaultEndpoint(defaultEndpoint),
		option.WithScopes(androidpublisher.AndroidpublisherScope),
	}, opts...)

	client, endpoint, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create android publisher client")
	}

	return &PublisherValidator{
		packageName: packageName,
		client:      client,
		basePath:    endpoint,
	}, nil
}

// NewPublisherValidatorFromConfig authenticates with the service account key
// at cfg.PrivateKeyPath.
func NewPublisherValidatorFromConfig(ctx context.Context, cfg *Config, opts ...option.ClientOption) (*PublisherValidator, error) {
	serviceAccountJSON, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read service account key")
	}

	opts = append([]option.ClientOption{
		option.WithCredentialsJSON(serviceAccountJSON),
	}, opts...)

	return NewPublisherValidator(ctx, cfg.BundleID, opts...)
}

func (v *PublisherValidator) Validate(ctx context.Context, purchaseToken string, productID string) (iap.RawResponse, error) {
	params := url.Values{}
	params.Set("alt", "json")
	params.Set("prettyPrint", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleapi.ResolveRelative(v.basePath, subscriptionPath)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create subscription request")
	}
	googleapi.Expand(req.URL, map[string]string{
		"packageName":    v.packageName,
		"subscriptionId": productID,
		"token":          purchaseToken,
	})

	res, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer googleapi.CloseBody(res)

	// Non-2xx statuses come back as a *googleapi.Error carrying the body.
	if err := googleapi.CheckResponse(res); err != nil {
		return nil, err
	}

	var response iap.RawResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, errors.Wrap(err, "failed to decode subscription purchase")
	}
	if response == nil {
		response = make(iap.RawResponse)
	}

	// The purchase resource doesn't echo the identifiers it was looked up by.
	response["productId"] = productID
	response["purchaseToken"] = purchaseToken

	return response, nil
}
