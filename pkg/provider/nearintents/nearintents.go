// Package nearintents adapts the NEAR Intents 1Click API to the provider contract.
package nearintents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"swap-aggregator/pkg/provider"
	"swap-aggregator/pkg/types"
)

// Name is the provider identifier used in the registry and weight table
const Name = "nearintents"

const (
	swapType        = "EXACT_INPUT"
	slippageBps     = 100 // 1%
	depositDeadline = 24 * time.Hour
	providerURL     = "https://near-intents.org"
)

// Config configures the 1Click client
type Config struct {
	JWTToken string
	BaseURL  string // optional override of the SDK default server
	Timeout  time.Duration
}

// Client wraps the 1Click SDK
type Client struct {
	api   *oneclick.APIClient
	token string
	log   zerolog.Logger
}

// New creates a 1Click provider
func New(cfg Config, log zerolog.Logger) *Client {
	sdkCfg := oneclick.NewConfiguration()
	if cfg.BaseURL != "" {
		sdkCfg.Servers = oneclick.ServerConfigurations{{URL: strings.TrimRight(cfg.BaseURL, "/")}}
	}
	if cfg.Timeout > 0 {
		sdkCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		api:   oneclick.NewAPIClient(sdkCfg),
		token: cfg.JWTToken,
		log:   log.With().Str("provider", Name).Logger(),
	}
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return Name
}

// authed attaches the JWT to the request context
func (c *Client) authed(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return context.WithValue(ctx, oneclick.ContextAccessToken, c.token)
}

// token is the subset of a 1Click token we rely on
type token struct {
	symbol   string
	chain    string
	assetID  string
	decimals int32
}

func (c *Client) tokens(ctx context.Context) ([]token, error) {
	resp, httpResp, err := c.api.OneClickAPI.GetTokens(c.authed(ctx)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", apiError(httpResp, err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	out := make([]token, 0, len(resp))
	for _, t := range resp {
		out = append(out, token{
			symbol:   t.GetSymbol(),
			chain:    t.GetBlockchain(),
			assetID:  t.GetAssetId(),
			decimals: int32(t.GetDecimals()),
		})
	}
	return out, nil
}

// matchToken finds the 1Click asset for a wallet currency by ticker and chain
func matchToken(tokens []token, c types.Currency) (token, bool) {
	for _, t := range tokens {
		if strings.EqualFold(t.symbol, c.Ticker) && strings.EqualFold(t.chain, c.Chain) {
			return t, true
		}
	}
	return token{}, false
}

// supportedCurrencies returns the ids of known currencies that have a 1Click asset
func supportedCurrencies(tokens []token) []string {
	var ids []string
	for _, c := range types.ListCurrencies() {
		if _, ok := matchToken(tokens, c); ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Pairs reports currencies only: 1Click swaps any supported asset to any other
func (c *Client) Pairs(ctx context.Context) ([]types.CurrencyPair, []string, error) {
	tokens, err := c.tokens(ctx)
	if err != nil {
		return nil, nil, err
	}

	currencies := supportedCurrencies(tokens)
	c.log.Debug().Int("tokens", len(tokens)).Int("currencies", len(currencies)).Msg("Fetched supported assets")
	return nil, currencies, nil
}

// Quote asks for a dry quote. 1Click only honours indicative (float) rates.
func (c *Client) Quote(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	q, err := c.quote(ctx, true, req.From, req.To, req.Amount, req.RefundAddress, req.PayoutAddress)
	if err != nil {
		return nil, err
	}

	quote := q.GetQuote()
	amountIn, err := decimal.NewFromString(quote.GetAmountInFormatted())
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount in: %w", err)
	}
	amountOut, err := decimal.NewFromString(quote.GetAmountOutFormatted())
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount out: %w", err)
	}

	return []provider.Quote{{
		TradeMethod: types.TradeMethodFloat,
		AmountFrom:  amountIn,
		AmountTo:    amountOut,
		ProviderURL: providerURL,
	}}, nil
}

// CreateSwap requests a real quote; its deposit address doubles as the swap id
func (c *Client) CreateSwap(ctx context.Context, req provider.CreateSwapRequest) (*provider.CreatedSwap, error) {
	if req.TradeMethod == types.TradeMethodFixed {
		return nil, fmt.Errorf("%w: fixed rates are not offered", provider.ErrSwapRejected)
	}

	q, err := c.quote(ctx, false, req.From, req.To, req.Amount, req.RefundAddress, req.PayoutAddress)
	if err != nil {
		return nil, err
	}

	quote := q.GetQuote()
	depositAddress := quote.GetDepositAddress()
	if depositAddress == "" {
		return nil, fmt.Errorf("%w: no deposit address in quote", provider.ErrSwapRejected)
	}

	amount, err := decimal.NewFromString(quote.GetAmountInFormatted())
	if err != nil {
		amount = req.Amount
	}

	created := &provider.CreatedSwap{
		SwapID:         depositAddress,
		PayinAddress:   depositAddress,
		AmountExpected: amount,
	}
	if quote.HasDepositMemo() {
		created.PayinExtraID = quote.GetDepositMemo()
	}

	c.log.Info().Str("deposit_address", depositAddress).Msg("Swap created")
	return created, nil
}

func (c *Client) quote(ctx context.Context, dry bool, from, to types.Currency, amount decimal.Decimal, refundTo, recipient string) (*oneclick.QuoteResponse, error) {
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient address is required", provider.ErrSwapRejected)
	}
	if refundTo == "" {
		refundTo = recipient
	}

	tokens, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	origin, ok := matchToken(tokens, from)
	if !ok {
		return nil, fmt.Errorf("%w: asset %s not listed", provider.ErrSwapRejected, from.ID)
	}
	dest, ok := matchToken(tokens, to)
	if !ok {
		return nil, fmt.Errorf("%w: asset %s not listed", provider.ErrSwapRejected, to.ID)
	}

	// smallest unit of the origin asset, as 1Click counts it
	amountStr := amount.Shift(origin.decimals).Floor().String()

	quoteReq := oneclick.NewQuoteRequest(
		dry,
		swapType,
		slippageBps,
		origin.assetID,
		"ORIGIN_CHAIN",
		dest.assetID,
		amountStr,
		refundTo,
		"ORIGIN_CHAIN",
		recipient,
		"DESTINATION_CHAIN",
		time.Now().Add(depositDeadline),
	)

	resp, httpResp, err := c.api.OneClickAPI.GetQuote(c.authed(ctx)).QuoteRequest(*quoteReq).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", apiError(httpResp, err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty quote response")
	}
	return resp, nil
}

// Statuses polls the execution status of each deposit address
func (c *Client) Statuses(ctx context.Context, swapIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(swapIDs))
	for _, id := range swapIDs {
		resp, httpResp, err := c.api.OneClickAPI.GetExecutionStatus(c.authed(ctx)).DepositAddress(id).Execute()
		if err != nil {
			if httpResp != nil && httpResp.StatusCode == http.StatusNotFound {
				httpResp.Body.Close()
				continue
			}
			return nil, fmt.Errorf("failed to get status of %s: %w", id, apiError(httpResp, err))
		}
		httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
		}
		out[id] = resp.GetStatus()
	}
	return out, nil
}

// SubmitDepositTx tells 1Click which transaction funded a deposit address
func (c *Client) SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error {
	req := oneclick.NewSubmitDepositTxRequest(depositAddress, txHash)

	_, httpResp, err := c.api.OneClickAPI.SubmitDepositTx(c.authed(ctx)).SubmitDepositTxRequest(*req).Execute()
	if err != nil {
		return fmt.Errorf("failed to submit deposit: %w", apiError(httpResp, err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}
	return nil
}

// apiError extracts the message of a JSON error body when there is one
func apiError(httpResp *http.Response, err error) error {
	if httpResp == nil || httpResp.Body == nil {
		return err
	}
	defer httpResp.Body.Close()

	body, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil || len(body) == 0 {
		return fmt.Errorf("status %d: %w", httpResp.StatusCode, err)
	}
	return fmt.Errorf("status %d: %s: %w", httpResp.StatusCode, errorMessage(body), err)
}

func errorMessage(body []byte) string {
	var errorResp map[string]any
	if err := json.Unmarshal(body, &errorResp); err == nil {
		if message, ok := errorResp["message"].(string); ok {
			return message
		}
		if errs, ok := errorResp["errors"]; ok {
			return fmt.Sprintf("%v", errs)
		}
	}
	return strings.TrimSpace(string(body))
}

var _ provider.Provider = (*Client)(nil)
