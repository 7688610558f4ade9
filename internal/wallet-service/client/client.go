package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/radieske/casino-platform/internal/shared/httpx"
	"github.com/radieske/casino-platform/internal/wallet-service/dto"
	"github.com/radieske/casino-platform/internal/wallet-service/ledger"
)

// Client fala com a wallet-service por HTTP. Erros de negócio voltam como os
// sentinelas do pacote ledger, então quem chama usa errors.Is normalmente.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) Debit(ctx context.Context, req ledger.Request) (ledger.Entry, error) {
	return c.entry(ctx, "/wallet/entries/debit", req)
}

func (c *Client) Credit(ctx context.Context, req ledger.Request) (ledger.Entry, error) {
	return c.entry(ctx, "/wallet/entries/credit", req)
}

// Settle repassa o resultado do processador de pagamentos
func (c *Client) Settle(ctx context.Context, entryID string, o ledger.Outcome) (ledger.Entry, error) {
	var out dto.EntryResponse
	err := c.do(ctx, http.MethodPost, "/wallet/entries/"+url.PathEscape(entryID)+"/settle", dto.SettleRequest{
		Success:     o.Success,
		ProviderRef: o.ProviderRef,
		Reason:      o.Reason,
	}, &out)
	if err != nil {
		return ledger.Entry{}, err
	}
	return out.ToEntry(), nil
}

func (c *Client) Balance(ctx context.Context, accountID string) (int64, error) {
	var out dto.WalletResponse
	if err := c.do(ctx, http.MethodGet, "/wallet?userId="+url.QueryEscape(accountID), nil, &out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}

func (c *Client) entry(ctx context.Context, path string, req ledger.Request) (ledger.Entry, error) {
	var out dto.EntryResponse
	err := c.do(ctx, http.MethodPost, path, dto.EntryRequest{
		UserID:         req.AccountID,
		Kind:           string(req.Kind),
		AmountCents:    req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      req.SessionID,
		TournamentID:   req.TournamentID,
		RelatedEntryID: req.RelatedEntryID,
		Description:    req.Description,
	}, &out)
	if err != nil {
		return ledger.Entry{}, err
	}
	return out.ToEntry(), nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var er httpx.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&er)
		if sentinel := ledger.FromCode(er.Code); sentinel != nil {
			return fmt.Errorf("%w (wallet http %d)", sentinel, res.StatusCode)
		}
		return fmt.Errorf("wallet http %d: %s", res.StatusCode, er.Error)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
