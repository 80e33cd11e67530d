package jcb

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sig-0/jcbrates/storage/types"
)

const (
	// DefaultBaseURL is the JCB rate table upload location
	DefaultBaseURL = "https://www.jcb.jp/uploads/"

	tableContentType = "text/plain"
	maxTableSize     = 1 << 20 // 1MB, a table is a few KB

	minColumns   = 6
	originColumn = 2
	targetColumn = 4
	codeColumn   = 5
)

var errTooFewColumns = errors.New("too few columns")

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Client fetches daily rate tables from the JCB website
type Client struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

type Option func(c *Client)

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new JCB table client.
// Redirects are never followed, a redirected table is treated as unpublished
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	c := &Client{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:  noopLogger,
		baseURL: baseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TableURL returns the remote location of the table for the given date
func (c *Client) TableURL(date types.Date) string {
	return c.baseURL + date.String() + ".csv"
}

// FetchTable fetches and parses the rate table for the given date.
// Returns types.ErrRemoteUnavailable if the table is not published,
// or a *types.ParseError if it is malformed
func (c *Client) FetchTable(ctx context.Context, date types.Date) (*types.RateTable, error) {
	url := c.TableURL(date)

	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	// Execute the request
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("%w: unable to execute GET request: %w", types.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d for %s", types.ErrRemoteUnavailable, resp.StatusCode, date)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != tableContentType {
		c.logUnexpectedPage(date, contentType, resp.Body)

		return nil, fmt.Errorf(
			"%w: content type %q for %s",
			types.ErrRemoteUnavailable,
			contentType,
			date,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTableSize))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read body: %w", types.ErrRemoteUnavailable, err)
	}

	return ParseTable(date, bytes.NewReader(body))
}

// logUnexpectedPage logs the title of HTML pages served in place of a table
func (c *Client) logUnexpectedPage(date types.Date, contentType string, body io.Reader) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "text/html" {
		c.logger.Debug(
			"rate table not served",
			"date", date,
			"content_type", contentType,
		)

		return
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxTableSize))
	if err != nil {
		return
	}

	c.logger.Debug(
		"rate table not served, got HTML page",
		"date", date,
		"title", strings.TrimSpace(doc.Find("title").First().Text()),
	)
}

// ParseTable parses the CSV rate table published for the given date
func ParseTable(date types.Date, r io.Reader) (*types.RateTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows are not uniform
	reader.TrimLeadingSpace = true

	table := &types.RateTable{
		Date:  date,
		Rates: make(map[types.Currency]types.RateEntry),
	}

	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, &types.ParseError{Date: date, Row: row, Err: err}
		}

		if len(record) < minColumns {
			return nil, &types.ParseError{
				Date: date,
				Row:  row,
				Err:  fmt.Errorf("%w: %d", errTooFewColumns, len(record)),
			}
		}

		originRate, err := parseRate(record[originColumn])
		if err != nil {
			return nil, &types.ParseError{Date: date, Row: row, Err: err}
		}

		targetRate, err := parseRate(record[targetColumn])
		if err != nil {
			return nil, &types.ParseError{Date: date, Row: row, Err: err}
		}

		currency := types.Currency(strings.ToUpper(strings.TrimSpace(record[codeColumn])))
		if currency == "" {
			return nil, &types.ParseError{Date: date, Row: row, Err: types.ErrInvalidCurrency}
		}

		table.Rates[currency] = types.RateEntry{
			OriginRate: originRate,
			TargetRate: targetRate,
		}
	}

	if len(table.Rates) == 0 {
		return nil, &types.ParseError{Date: date, Err: errors.New("empty table")}
	}

	return table, nil
}

// parseRate parses a single rate column
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse rate %q: %w", s, err)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidRate, s)
	}

	return f, nil
}
