package iap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	for _, tc := range []struct {
		name     string
		expected Provider
	}{
		{"apple", ProviderApple},
		{"google", ProviderGoogle},
	} {
		actual, err := ParseProvider(tc.name)
		require.NoError(t, err)
		require.Equal(t, tc.expected, actual)
	}

	for _, name := range []string{"", "amazon", "unknown", "Apple", "APPLE ", " google", "GOOGLE"} {
		_, err := ParseProvider(name)
		require.ErrorIs(t, err, ErrUndefinedProvider)
	}
}

func TestProvider_String(t *testing.T) {
	for _, provider := range AllProviders() {
		parsed, err := ParseProvider(provider.String())
		require.NoError(t, err)
		require.Equal(t, provider, parsed)
	}
	require.Equal(t, "unknown", ProviderUnknown.String())
}

func TestProvider_JSON(t *testing.T) {
	encoded, err := json.Marshal(ProviderGoogle)
	require.NoError(t, err)
	require.Equal(t, `"google"`, string(encoded))

	var decoded Provider
	require.NoError(t, json.Unmarshal([]byte(`"apple"`), &decoded))
	require.Equal(t, ProviderApple, decoded)

	require.ErrorIs(t, json.Unmarshal([]byte(`"amazon"`), &decoded), ErrUndefinedProvider)
}
