package nearintents

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-aggregator/pkg/types"
)

var listed = []token{
	{symbol: "BTC", chain: "btc", assetID: "nep141:btc.omft.near", decimals: 8},
	{symbol: "ETH", chain: "eth", assetID: "nep141:eth.omft.near", decimals: 18},
	{symbol: "USDC", chain: "eth", assetID: "nep141:eth-0xa0b8.omft.near", decimals: 6},
	{symbol: "USDC", chain: "sol", assetID: "nep141:sol-5ce3.omft.near", decimals: 6},
	{symbol: "wNEAR", chain: "near", assetID: "nep141:wrap.near", decimals: 24},
}

func TestMatchToken_ByTickerAndChain(t *testing.T) {
	usdc, err := types.FindCurrency("ethereum/erc20/usdc")
	require.NoError(t, err)

	tok, ok := matchToken(listed, usdc)
	require.True(t, ok)
	assert.Equal(t, "nep141:eth-0xa0b8.omft.near", tok.assetID)

	sol, err := types.FindCurrency("solana")
	require.NoError(t, err)
	_, ok = matchToken(listed, sol)
	assert.False(t, ok)
}

func TestSupportedCurrencies(t *testing.T) {
	assert.Equal(t, []string{"bitcoin", "ethereum", "ethereum/erc20/usdc"}, supportedCurrencies(listed))
	assert.Empty(t, supportedCurrencies(nil))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "amount too low", errorMessage([]byte(`{"message":"amount too low"}`)))
	assert.Equal(t, "[bad recipient]", errorMessage([]byte(`{"errors":["bad recipient"]}`)))
	assert.Equal(t, "gateway timeout", errorMessage([]byte("gateway timeout\n")))
}

func TestAPIError_WrapsCause(t *testing.T) {
	cause := errors.New("400 Bad Request")
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader(`{"message":"deadline in the past"}`)),
	}

	err := apiError(resp, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "deadline in the past")
	assert.Contains(t, err.Error(), "400")

	assert.Same(t, cause, apiError(nil, cause))
}

func TestClient_Name(t *testing.T) {
	c := New(Config{JWTToken: "jwt", BaseURL: "http://localhost:1/"}, zerolog.Nop())
	assert.Equal(t, "nearintents", c.Name())
}
