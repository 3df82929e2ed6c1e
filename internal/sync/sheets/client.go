// Package sheets fetches the sales log from the Google Sheets values
// API and maps raw rows to typed sales order lines.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tripforms_backend/platform/apperr"
	"tripforms_backend/platform/config"
)

const valuesAPIBase = "https://sheets.googleapis.com/v4/spreadsheets"

// Fetcher retrieves the raw grid of the configured sheet range.
type Fetcher interface {
	FetchRows(ctx context.Context) ([][]string, error)
}

// Client calls the Sheets values API with an API key. The sheet must
// be link-readable; no OAuth flow is involved.
type Client struct {
	cfg    config.SheetsConfig
	client *http.Client
}

func NewClient(cfg config.SheetsConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type valuesResponse struct {
	Values [][]any `json:"values"`
}

// FetchRows returns every row of the configured range as strings.
// Numeric cells are formatted the way the sheet displays them.
func (c *Client) FetchRows(ctx context.Context) ([][]string, error) {
	if !c.cfg.IsSheetsEnabled() {
		return nil, apperr.Upstream("spreadsheet source is not configured").WithCode(apperr.CodeSheetsNotConfigured)
	}

	endpoint := fmt.Sprintf("%s/%s/values/%s?key=%s&valueRenderOption=FORMATTED_VALUE",
		valuesAPIBase,
		url.PathEscape(c.cfg.GetSheetsSpreadsheetID()),
		url.PathEscape(c.cfg.GetSheetsRange()),
		url.QueryEscape(c.cfg.GetSheetsAPIKey()),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "spreadsheet fetch failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.Upstream(fmt.Sprintf("spreadsheet fetch failed: status %d: %s", resp.StatusCode, string(body)))
	}

	var payload valuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "spreadsheet response decode failed", err)
	}

	rows := make([][]string, 0, len(payload.Values))
	for _, raw := range payload.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			switch v := cell.(type) {
			case string:
				row[i] = v
			case float64:
				row[i] = formatNumber(v)
			case bool:
				if v {
					row[i] = "TRUE"
				} else {
					row[i] = "FALSE"
				}
			case nil:
				row[i] = ""
			default:
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

var _ Fetcher = (*Client)(nil)
