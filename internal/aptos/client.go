package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/DucLoc1999/Dexonic-Trading/internal/ledger"
)

const (
	DefaultNodeURL = "https://fullnode.mainnet.aptoslabs.com/v1"

	defaultPageSize     = 100
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxGasAmount = 20_000
	defaultTxTTL        = 60 * time.Second
	defaultMaxWait      = 20 * time.Second

	cursorHeader = "X-Aptos-Cursor"
)

// Client talks to an Aptos fullnode REST API. It implements ledger.Gateway.
type Client struct {
	host         string
	httpClient   *http.Client
	limiter      *rate.Limiter
	pageSize     int
	pollInterval time.Duration
	maxGasAmount uint64
	txTTL        time.Duration
	maxWait      time.Duration
	now          func() time.Time
}

// ErrWaitTimeout is returned by WaitForFinality when the transaction is still
// pending after the client's max wait.
var ErrWaitTimeout = errors.New("aptos: transaction not final within max wait")

var _ ledger.Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outgoing requests. Public fullnodes throttle per IP.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxWait bounds WaitForFinality independently of the caller's context.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

func WithMaxGasAmount(units uint64) Option {
	return func(c *Client) {
		if units > 0 {
			c.maxGasAmount = units
		}
	}
}

func NewClient(host string, opts ...Option) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultNodeURL
	}
	host = strings.TrimRight(host, "/")
	if !strings.HasPrefix(host, "http") {
		return nil, fmt.Errorf("aptos node url must be http(s), got %q", host)
	}

	c := &Client{
		host:         host,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(8), 4),
		pageSize:     defaultPageSize,
		pollInterval: defaultPollInterval,
		maxGasAmount: defaultMaxGasAmount,
		txTTL:        defaultTxTTL,
		maxWait:      defaultMaxWait,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Host() string { return c.host }

// APIError is a non-2xx response from the node.
type APIError struct {
	Method  string `json:"-"`
	Path    string `json:"-"`
	Status  int    `json:"-"`
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("aptos %s %s: status %d: %s: %s", e.Method, e.Path, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("aptos %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ledger.ErrNotFound
	}
	return nil
}

type ledgerInfo struct {
	ChainID         uint8  `json:"chain_id"`
	LedgerVersion   string `json:"ledger_version"`
	LedgerTimestamp string `json:"ledger_timestamp"`
}

type accountInfo struct {
	SequenceNumber    string `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

type gasEstimate struct {
	GasEstimate uint64 `json:"gas_estimate"`
}

type transactionResp struct {
	Type         string         `json:"type"`
	Hash         string         `json:"hash"`
	Success      bool           `json:"success"`
	VMStatus     string         `json:"vm_status"`
	GasUsed      string         `json:"gas_used"`
	GasUnitPrice string         `json:"gas_unit_price"`
	Events       []ledger.Event `json:"events"`
	Timestamp    string         `json:"timestamp"`
}

func (c *Client) ChainID(ctx context.Context) (uint8, error) {
	var info ledgerInfo
	if _, err := c.doJSON(ctx, http.MethodGet, "/", nil, nil, &info); err != nil {
		return 0, err
	}
	return info.ChainID, nil
}

func (c *Client) SequenceNumber(ctx context.Context, address string) (uint64, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return 0, err
	}
	var info accountInfo
	if _, err := c.doJSON(ctx, http.MethodGet, "/accounts/"+addr, nil, nil, &info); err != nil {
		return 0, err
	}
	seq, err := strconv.ParseUint(info.SequenceNumber, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sequence_number %q: %w", info.SequenceNumber, err)
	}
	return seq, nil
}

func (c *Client) EstimateGasPrice(ctx context.Context) (uint64, error) {
	var est gasEstimate
	if _, err := c.doJSON(ctx, http.MethodGet, "/estimate_gas_price", nil, nil, &est); err != nil {
		return 0, err
	}
	if est.GasEstimate == 0 {
		return 0, fmt.Errorf("gas estimate missing in response")
	}
	return est.GasEstimate, nil
}

// AccountResources lists every resource of an account, following the
// pagination cursor.
func (c *Client) AccountResources(ctx context.Context, address string) ([]ledger.Resource, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	var out []ledger.Resource
	cursor := ""
	for {
		params := url.Values{"limit": []string{strconv.Itoa(c.pageSize)}}
		if cursor != "" {
			params.Set("start", cursor)
		}
		var page []ledger.Resource
		hdr, err := c.doJSON(ctx, http.MethodGet, "/accounts/"+addr+"/resources", params, nil, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)

		cursor = strings.TrimSpace(hdr.Get(cursorHeader))
		if cursor == "" || len(page) == 0 {
			return out, nil
		}
	}
}

func (c *Client) AccountResource(ctx context.Context, address, resourceType string) (ledger.Resource, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return ledger.Resource{}, err
	}
	if strings.TrimSpace(resourceType) == "" {
		return ledger.Resource{}, fmt.Errorf("resource type required")
	}
	var res ledger.Resource
	path := "/accounts/" + addr + "/resource/" + url.PathEscape(resourceType)
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return ledger.Resource{}, err
	}
	return res, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*ledger.Receipt, error) {
	var tx transactionResp
	if _, err := c.doJSON(ctx, http.MethodGet, "/transactions/by_hash/"+hash.Hex(), nil, nil, &tx); err != nil {
		return nil, err
	}
	return tx.receipt()
}

// WaitForFinality polls until the transaction has left the mempool, the
// client's max wait passes, or ctx ends. It does not judge success; read the
// receipt for that. A transaction the node never saw gives up with
// ledger.ErrNotFound, one still pending with ErrWaitTimeout.
func (c *Client) WaitForFinality(ctx context.Context, hash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last error
	for {
		rec, err := c.TransactionByHash(ctx, hash)
		switch {
		case err == nil && !rec.Pending:
			return nil
		case err == nil:
			last = ErrWaitTimeout
		case errors.Is(err, ledger.ErrNotFound):
			last = err
		case ctx.Err() == nil:
			return err
		}

		select {
		case <-ctx.Done():
			if last != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("wait for %s: %w", hash.Hex(), errors.Join(last, ctx.Err()))
			}
			return fmt.Errorf("wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (tx transactionResp) receipt() (*ledger.Receipt, error) {
	rec := &ledger.Receipt{
		Hash:     common.HexToHash(tx.Hash),
		Pending:  tx.Type == "pending_transaction",
		Success:  tx.Success,
		VMStatus: tx.VMStatus,
		Events:   tx.Events,
	}
	if rec.Pending {
		return rec, nil
	}

	var err error
	if rec.GasUsed, err = parseUintField("gas_used", tx.GasUsed); err != nil {
		return nil, err
	}
	if rec.GasUnitPrice, err = parseUintField("gas_unit_price", tx.GasUnitPrice); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tx.Timestamp) != "" {
		us, err := strconv.ParseInt(tx.Timestamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", tx.Timestamp, err)
		}
		rec.Timestamp = time.UnixMicro(us).UTC()
	}
	return rec, nil
}

func parseUintField(name, v string) (uint64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, v, err)
	}
	return n, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body any, out any) (http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u := c.host + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(b, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		return resp.Header, apiErr
	}
	if out == nil {
		return resp.Header, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return resp.Header, fmt.Errorf("decode %s response: %w (body=%s)", path, err, strings.TrimSpace(string(b)))
	}
	return resp.Header, nil
}
