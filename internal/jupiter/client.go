package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.jup.ag/swap/v1"

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("jupiter http %d", e.StatusCode)
	}
	return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	q, err := req.values()
	if err != nil {
		return nil, err
	}

	u := c.BaseURL + "/quote?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	return &out, nil
}

// QuoteExactIn returns the raw output amount for an exact-input quote.
func (c *Client) QuoteExactIn(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, *QuoteResponse, error) {
	res, err := c.Quote(ctx, QuoteRequest{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Amount:     strconv.FormatUint(amount, 10),
		SwapMode:   "ExactIn",
	})
	if err != nil {
		return 0, nil, err
	}
	out, err := res.OutAmountRaw()
	if err != nil {
		return 0, nil, err
	}
	return out, res, nil
}

func (r QuoteRequest) values() (url.Values, error) {
	if strings.TrimSpace(r.InputMint) == "" {
		return nil, fmt.Errorf("inputMint is required")
	}
	if strings.TrimSpace(r.OutputMint) == "" {
		return nil, fmt.Errorf("outputMint is required")
	}
	if strings.TrimSpace(r.Amount) == "" {
		return nil, fmt.Errorf("amount is required")
	}

	q := url.Values{}
	q.Set("inputMint", r.InputMint)
	q.Set("outputMint", r.OutputMint)
	q.Set("amount", r.Amount)

	setUint := func(key string, v *uint16) {
		if v != nil {
			q.Set(key, strconv.FormatUint(uint64(*v), 10))
		}
	}
	setBool := func(key string, v *bool) {
		if v != nil {
			q.Set(key, strconv.FormatBool(*v))
		}
	}

	setUint("slippageBps", r.SlippageBps)
	setBool("restrictIntermediateTokens", r.RestrictIntermediateTokens)
	setBool("onlyDirectRoutes", r.OnlyDirectRoutes)

	if r.SwapMode != "" {
		q.Set("swapMode", r.SwapMode)
	}
	if len(r.Dexes) > 0 {
		q.Set("dexes", strings.Join(r.Dexes, ","))
	}
	if len(r.ExcludeDexes) > 0 {
		q.Set("excludeDexes", strings.Join(r.ExcludeDexes, ","))
	}
	return q, nil
}
