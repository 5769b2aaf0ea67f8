package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-treasury/internal/constants"
	"github.com/aman-zulfiqar/solana-treasury/internal/server"
	"github.com/aman-zulfiqar/solana-treasury/internal/wallet"
)

// apiClient calls the treasury API, signing requests with key when set.
type apiClient struct {
	base   string
	apiKey string
	key    *wallet.Wallet
	http   *http.Client
}

func newAPIClient(base, apiKey, privateKey string, timeout time.Duration) (*apiClient, error) {
	c := &apiClient{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
	if strings.TrimSpace(privateKey) != "" {
		k, err := wallet.LoadSigner(privateKey)
		if err != nil {
			return nil, err
		}
		c.key = k
	}
	return c, nil
}

type apiError struct {
	Status int
	Body   server.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Details != nil {
		return fmt.Sprintf("api %d: %s (%v)", e.Status, e.Body.Error, e.Body.Details)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Body.Error)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any, signed bool) error {
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		raw = b
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if signed {
		if c.key == nil {
			return fmt.Errorf("%s %s needs a signing key (-key or TREASURY_KEY)", method, path)
		}
		ts := time.Now().Unix()
		sig, err := c.key.SignMessage(server.SigningMessage(method, req.URL.Path, ts, raw))
		if err != nil {
			return err
		}
		req.Header.Set(constants.HeaderPrincipal, c.key.PublicKey().String())
		req.Header.Set(constants.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(constants.HeaderSignature, sig.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		e := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(b, &e.Body) != nil || e.Body.Error == "" {
			e.Body.Error = strings.TrimSpace(string(b))
		}
		return e
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
