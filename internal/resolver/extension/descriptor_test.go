package extension_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/resolver/extension"
)

func TestBuildCapability_RoundTripsArgumentAndResponseShape(t *testing.T) {
	capability, err := extension.BuildCapability("pricing", "convert", []string{"amount", "currency"})
	require.NoError(t, err)

	require.Equal(t, "/grafbase.extension.v1.Capability/convert", capability.FullMethod)

	reqFields := capability.Method.Input().Fields()
	require.Equal(t, 2, reqFields.Len())
	require.NotNil(t, reqFields.ByName("amount"))
	require.NotNil(t, reqFields.ByName("currency"))

	respFields := capability.Method.Output().Fields()
	require.Equal(t, 1, respFields.Len())
	require.NotNil(t, respFields.ByName("value"))
}

func TestBuildCapability_NoArguments(t *testing.T) {
	capability, err := extension.BuildCapability("pricing", "listCurrencies", nil)
	require.NoError(t, err)
	require.Equal(t, 0, capability.Method.Input().Fields().Len())
}
