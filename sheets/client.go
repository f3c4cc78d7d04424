package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/karupanerura/batchloader"
)

// Token is an access token for the values API.
type Token struct {
	AccessToken string
	TokenType   string
	// ExpiresAt is batchloader.NeverExpires when the token endpoint sent no lifetime.
	ExpiresAt time.Time
}

// Row is one row of a value range. Trailing empty cells may be missing.
type Row []string

// Cell returns the i-th cell, or "" if the row is shorter.
func (r Row) Cell(i int) string {
	if i < len(r) {
		return r[i]
	}
	return ""
}

// Client talks to the token endpoint and the values API.
type Client struct {
	conf  Config
	resty *resty.Client
	clock batchloader.Clock
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientClock sets the clock used to compute token expiry times.
func WithClientClock(clock batchloader.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// NewClient creates a client for conf.
func NewClient(conf Config, opts ...ClientOption) *Client {
	c := &Client{
		conf: conf,
		resty: resty.New().
			SetBaseURL(conf.BaseURL).
			SetTimeout(conf.Timeout),
		clock: batchloader.SystemClock,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AcquireToken requests a new token with the client credentials grant.
func (c *Client) AcquireToken(ctx context.Context) (Token, error) {
	form := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.conf.ClientID,
		"client_secret": c.conf.ClientSecret,
	}
	if c.conf.Scope != "" {
		form["scope"] = c.conf.Scope
	}

	issuedAt := c.clock.Now()
	resp, err := c.resty.R().
		SetContext(ctx).
		SetFormData(form).
		Post(c.conf.TokenURL)
	if err != nil {
		return Token{}, fmt.Errorf("sheets token: %w", err)
	}
	if !resp.IsSuccess() {
		return Token{}, &StatusError{Op: "token", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return Token{}, fmt.Errorf("sheets token: %w: invalid JSON", ErrMalformedResponse)
	}
	result := gjson.GetManyBytes(body, "access_token", "token_type", "expires_in")
	if result[0].String() == "" {
		return Token{}, fmt.Errorf("sheets token: %w: missing access_token", ErrMalformedResponse)
	}

	token := Token{
		AccessToken: result[0].String(),
		TokenType:   result[1].String(),
		ExpiresAt:   batchloader.NeverExpires,
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if expiresIn := result[2].Int(); expiresIn > 0 {
		token.ExpiresAt = issuedAt.Add(time.Duration(expiresIn) * time.Second)
	}
	return token, nil
}

// FetchTable returns every row of rng in the spreadsheet tableID.
func (c *Client) FetchTable(ctx context.Context, token Token, tableID, rng string) ([]Row, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetAuthScheme(token.TokenType).
		SetAuthToken(token.AccessToken).
		SetPathParams(map[string]string{
			"tableID": tableID,
			"range":   rng,
		}).
		Get("/v4/spreadsheets/{tableID}/values/{range}")
	if err != nil {
		return nil, fmt.Errorf("sheets values: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Op: "values", StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return parseValues(resp.Body())
}

// parseValues reads the values array of a value range. A range without values has no rows.
func parseValues(body []byte) ([]Row, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("sheets values: %w: invalid JSON", ErrMalformedResponse)
	}
	values := gjson.GetBytes(body, "values")
	if !values.Exists() {
		return nil, nil
	}
	if !values.IsArray() {
		return nil, fmt.Errorf("sheets values: %w: values is not an array", ErrMalformedResponse)
	}

	var (
		rows   []Row
		badRow = -1
	)
	values.ForEach(func(i, row gjson.Result) bool {
		if !row.IsArray() {
			badRow = int(i.Int())
			return false
		}
		cells := row.Array()
		r := make(Row, len(cells))
		for j, cell := range cells {
			r[j] = cell.String()
		}
		rows = append(rows, r)
		return true
	})
	if badRow >= 0 {
		return nil, fmt.Errorf("sheets values: %w: row %d is not an array", ErrMalformedResponse, badRow)
	}
	return rows, nil
}
