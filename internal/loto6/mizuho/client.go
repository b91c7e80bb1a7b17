// Package mizuho fetches Loto6 drawing results from the Mizuho Bank
// takarakuji site and hands them to the parsers.
package mizuho

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"
	"unicode/utf8"

	"loto6-archive/internal/assert"
	"loto6-archive/internal/draw"
	"loto6-archive/internal/loto6/parse"
	"loto6-archive/internal/telemetry"
	"loto6-archive/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/time/rate"
)

const (
	DefaultIndexURL   = "https://www.mizuhobank.co.jp/takarakuji/apl/txt/loto6/name.txt"
	DefaultCSVBaseURL = "https://www.mizuhobank.co.jp/retail/takarakuji/loto/loto6/csv/"
	DefaultPageURL    = "https://www.mizuhobank.co.jp/takarakuji/check/loto/loto6/index.html"
	DefaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

const (
	report_fetch_latest = "fetch-latest"
	report_fetch_round  = "fetch-round"
	report_latest_round = "latest-round"
)

// Source selects where FetchLatest reads the latest result from.
type Source string

const (
	SourceCSV  Source = "csv"
	SourceHTML Source = "html"
)

func (s Source) Valid() bool {
	return s == SourceCSV || s == SourceHTML
}

type Options struct {
	IndexURL   string
	CSVBaseURL string
	PageURL    string
	UserAgent  string
	Source     Source

	Timeout time.Duration
	// Retries is the number of retries after a failed request, 0 disables retrying.
	Retries int
	// RequestsPerSecond caps the request rate, 0 disables the limit.
	RequestsPerSecond float64
	// BrowserTransport makes the TLS handshake and headers look like a browser.
	BrowserTransport bool

	// Output receives a dump of every http message when debug logging is on, it can be nil.
	Output restyutil.InstrumentOutput
}

func (o Options) withDefaults() Options {
	if o.IndexURL == "" {
		o.IndexURL = DefaultIndexURL
	}
	if o.CSVBaseURL == "" {
		o.CSVBaseURL = DefaultCSVBaseURL
	}
	if o.PageURL == "" {
		o.PageURL = DefaultPageURL
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Source == "" {
		o.Source = SourceCSV
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// StatusError is returned when the site answers with a non 2xx status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: unexpected status %d", e.URL, e.Status)
}

// Client fetches and parses results, its methods are safe for concurrent use.
type Client struct {
	http *resty.Client
	opts Options
	tel  telemetry.API
}

func New(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")

	opts = opts.withDefaults()
	if !opts.Source.Valid() {
		return nil, fmt.Errorf("unknown source %q", opts.Source)
	}
	for _, raw := range []string{opts.IndexURL, opts.CSVBaseURL, opts.PageURL} {
		_, err := url.ParseRequestURI(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", raw, err)
		}
	}

	httpClient := resty.New()
	if opts.BrowserTransport {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRetryCount(opts.Retries)
	httpClient.SetRetryWaitTime(time.Second)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500
	})

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(httpClient, otel.Tracer("loto6-archive/mizuho"), opts.Output)

	return &Client{
		http: httpClient,
		opts: opts,
		tel:  telemetry.NewScopedAPI("mizuho", tel),
	}, nil
}

func (c *Client) get(ctx context.Context, target string) (*resty.Response, error) {
	res, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	if res.IsError() {
		return nil, &StatusError{URL: target, Status: res.StatusCode()}
	}
	return res, nil
}

// decodeShiftJIS returns body as UTF-8, the site serves its text files in
// Shift-JIS but mirrors sometimes re-encode them.
func decodeShiftJIS(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode shift-jis: %w", err)
	}
	return string(decoded), nil
}

// LatestRound reads the index of published CSV files and returns the
// highest round listed.
func (c *Client) LatestRound(ctx context.Context) (int, error) {
	res, err := c.get(ctx, c.opts.IndexURL)
	if err != nil {
		c.tel.ReportWarning(report_latest_round, err)
		return 0, err
	}
	text, err := decodeShiftJIS(res.Body())
	if err != nil {
		return 0, err
	}
	return parse.LatestRound(text)
}

// FetchRound downloads and parses the CSV of a single round.
func (c *Client) FetchRound(ctx context.Context, round int) (draw.Result, error) {
	if round < 1 || round > parse.MaxRound {
		return draw.Result{}, fmt.Errorf("%w: round %d", draw.ErrInvalidResult, round)
	}
	target, err := url.JoinPath(c.opts.CSVBaseURL, parse.FileName(round))
	if err != nil {
		return draw.Result{}, err
	}

	res, err := c.get(ctx, target)
	if err != nil {
		c.tel.ReportWarning(report_fetch_round, err, telemetry.KV{Key: "round", Value: round})
		return draw.Result{}, err
	}
	text, err := decodeShiftJIS(res.Body())
	if err != nil {
		return draw.Result{}, err
	}
	result, err := parse.CSV(text)
	if err != nil {
		return draw.Result{}, fmt.Errorf("%s: %w", target, err)
	}
	if result.Round != round {
		return draw.Result{}, &parse.Error{
			Source: "csv",
			Reason: fmt.Sprintf("file for round %d contains round %d", round, result.Round),
		}
	}

	c.tel.ReportDebug("fetched round", telemetry.KV{Key: "round", Value: round})
	return result, nil
}

// page downloads the drawing results page and decodes it using the charset
// the server or the document declares.
func (c *Client) page(ctx context.Context) (io.Reader, error) {
	res, err := c.get(ctx, c.opts.PageURL)
	if err != nil {
		return nil, err
	}
	reader, err := charset.NewReader(bytes.NewReader(res.Body()), res.Header().Get("content-type"))
	if err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return reader, nil
}

// FetchPage downloads the drawing results page and parses every result on it.
func (c *Client) FetchPage(ctx context.Context) ([]draw.Result, error) {
	reader, err := c.page(ctx)
	if err != nil {
		return nil, err
	}
	return parse.HTMLAll(reader)
}

// FetchLatest fetches the most recent result from the configured source.
func (c *Client) FetchLatest(ctx context.Context) (draw.Result, error) {
	var (
		result draw.Result
		err    error
	)
	switch c.opts.Source {
	case SourceHTML:
		result, err = c.fetchLatestPage(ctx)
	default:
		var round int
		round, err = c.LatestRound(ctx)
		if err == nil {
			result, err = c.FetchRound(ctx, round)
		}
	}
	if err != nil {
		c.tel.ReportWarning(report_fetch_latest, err, telemetry.KV{Key: "source", Value: string(c.opts.Source)})
		return draw.Result{}, err
	}
	return result, nil
}

func (c *Client) fetchLatestPage(ctx context.Context) (draw.Result, error) {
	reader, err := c.page(ctx)
	if err != nil {
		return draw.Result{}, err
	}
	return parse.HTML(reader)
}
