package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// HTTPClient обращается к escrow-ретранслятору по HTTP.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPConfig - параметры клиента шлюза.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RPS ограничивает частоту запросов к ретранслятору; 0 - без ограничения.
	RPS float64
}

// NewHTTPClient создаёт клиент шлюза.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Fund создаёт escrow и переводит в него средства плательщика.
func (c *HTTPClient) Fund(ctx context.Context, req FundRequest) (*Attestation, error) {
	body := map[string]interface{}{
		"order_ref": req.OrderRef,
		"amount":    req.Amount.StringFixed(2),
		"currency":  req.Currency,
		"deadline":  req.Deadline.UTC().Format(time.RFC3339),
	}
	res, err := c.post(ctx, "/v1/escrow/fund", req.RequestKey, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: fund %w", err)
	}

	att, err := parseAttestation(res)
	if err != nil {
		return nil, fmt.Errorf("gateway: fund %w", err)
	}
	if att.EscrowAddress == "" || !att.Amount.Valid {
		return nil, fmt.Errorf("gateway: fund ответ без адреса escrow или суммы")
	}
	return att, nil
}

// Release переводит средства из escrow исполнителю.
func (c *HTTPClient) Release(ctx context.Context, requestKey, escrowAddress string) (*Attestation, error) {
	res, err := c.post(ctx, "/v1/escrow/release", requestKey, map[string]interface{}{
		"escrow_address": escrowAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: release %w", err)
	}
	return parseAttestation(res)
}

// RefundOrSplit возвращает средства плательщику, возможно разделяя их с исполнителем.
func (c *HTTPClient) RefundOrSplit(ctx context.Context, requestKey, escrowAddress string, payerAmount, payeeAmount decimal.Decimal) (*Attestation, error) {
	res, err := c.post(ctx, "/v1/escrow/refund", requestKey, map[string]interface{}{
		"escrow_address": escrowAddress,
		"payer_amount":   payerAmount.StringFixed(2),
		"payee_amount":   payeeAmount.StringFixed(2),
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: refund %w", err)
	}
	return parseAttestation(res)
}

// Dispute открывает спор по escrow.
func (c *HTTPClient) Dispute(ctx context.Context, requestKey, escrowAddress, reason string) (*Attestation, error) {
	res, err := c.post(ctx, "/v1/escrow/dispute", requestKey, map[string]interface{}{
		"escrow_address": escrowAddress,
		"reason":         reason,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: dispute %w", err)
	}
	return parseAttestation(res)
}

// Lookup возвращает состояние ранее отправленного запроса.
func (c *HTTPClient) Lookup(ctx context.Context, requestKey string) (*LookupResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gateway: lookup %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/requests/"+url.PathEscape(requestKey), nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: lookup create request %w", err)
	}
	c.setAuth(httpReq)

	status, respBody, err := c.do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: lookup %w", err)
	}
	if status == http.StatusNotFound {
		return &LookupResult{State: LookupUnknown}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("gateway: lookup %s", statusError(status, respBody))
	}

	res := gjson.ParseBytes(respBody)
	result := &LookupResult{
		State:  LookupState(res.Get("status").String()),
		Reason: res.Get("reason").String(),
	}
	switch result.State {
	case LookupConfirmed:
		att, err := parseAttestation(res.Get("result"))
		if err != nil {
			return nil, fmt.Errorf("gateway: lookup %w", err)
		}
		result.Attestation = att
	case LookupPending, LookupFailed:
	default:
		return nil, fmt.Errorf("gateway: lookup неизвестный статус %q", result.State)
	}
	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, path, requestKey string, payload interface{}) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", requestKey)
	c.setAuth(httpReq)

	status, respBody, err := c.do(httpReq)
	if err != nil {
		return gjson.Result{}, err
	}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrRejected, statusError(status, respBody))
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return gjson.Result{}, fmt.Errorf("%s", statusError(status, respBody))
	}
	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, fmt.Errorf("некорректный JSON в ответе")
	}

	return gjson.ParseBytes(respBody), nil
}

func (c *HTTPClient) do(httpReq *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *HTTPClient) setAuth(httpReq *http.Request) {
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func statusError(status int, body []byte) string {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Sprintf("status %d: %s", status, msg)
}

func parseAttestation(res gjson.Result) (*Attestation, error) {
	att := &Attestation{
		EscrowAddress:   res.Get("escrow_address").String(),
		TransactionHash: res.Get("transaction_hash").String(),
	}
	if att.TransactionHash == "" {
		return nil, fmt.Errorf("ответ без transaction_hash")
	}

	if amount := res.Get("amount"); amount.Exists() {
		value, err := decimal.NewFromString(amount.String())
		if err != nil {
			return nil, fmt.Errorf("некорректная сумма в ответе: %w", err)
		}
		att.Amount = decimal.NullDecimal{Decimal: value, Valid: true}
	}
	return att, nil
}

var _ SettlementGateway = (*HTTPClient)(nil)
