// Package ossindex queries the Sonatype OSS Index component-report API.
package ossindex

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/batch"
	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/metrics"
	"github.com/warren2314/OSS-Checker/pkg/ratelimit"
)

const (
	DefaultURL     = "https://ossindex.sonatype.org/api/v3/component-report"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 512
)

var (
	ErrRequest           = xerrors.New("request failed")
	ErrUnexpectedStatus  = xerrors.New("unexpected status code")
	ErrMalformedResponse = xerrors.New("malformed response")
	ErrInvalidMode       = xerrors.New("invalid request mode")
)

// Mode selects how coordinates of a chunk are sent.
type Mode string

const (
	// ModeBatched sends a whole chunk in one call. A failure loses the chunk.
	ModeBatched Mode = "batched"
	// ModePerItem sends one call per coordinate so failures stay isolated.
	ModePerItem Mode = "per-item"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBatched, "batch", "":
		return ModeBatched, nil
	case ModePerItem, "per_item", "item":
		return ModePerItem, nil
	}
	return "", xerrors.Errorf("%q: %w", s, ErrInvalidMode)
}

// Waiter hands out request slots.
type Waiter interface {
	WaitForSlot()
}

type Client struct {
	url         string
	credentials string
	mode        Mode
	httpClient  *http.Client
	limiter     Waiter
	metrics     *metrics.Recorder
	logger      *log.Logger
}

type Option func(*Client)

func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithMode(m Mode) Option {
	return func(c *Client) {
		c.mode = m
	}
}

func WithLimiter(w Waiter) Option {
	return func(c *Client) {
		c.limiter = w
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a client sending credentials verbatim as a Basic
// Authorization header. Empty credentials send anonymous requests.
func NewClient(credentials string, opts ...Option) *Client {
	c := &Client{
		url:         DefaultURL,
		credentials: credentials,
		mode:        ModeBatched,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     ratelimit.New(ratelimit.DefaultCallsPerMinute),
		logger:      log.WithPrefix("ossindex"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Mode() Mode {
	return c.mode
}

// Query fetches component reports for every coordinate of the chunk.
// Failures never escape as errors: they are returned as failed outcomes
// covering the affected coordinates.
func (c *Client) Query(ctx context.Context, chunk batch.Chunk) []Outcome {
	if chunk.Len() == 0 {
		return nil
	}
	c.logger.Info("Checking packages", log.Int("chunk", chunk.Index), log.Int("coordinates", chunk.Len()),
		log.String("mode", string(c.mode)))

	if c.mode == ModePerItem {
		outcomes := make([]Outcome, 0, chunk.Len())
		for _, coord := range chunk.Coordinates {
			outcomes = append(outcomes, c.queryItem(ctx, coord))
		}
		return outcomes
	}
	return c.queryBatch(ctx, chunk)
}

func (c *Client) queryBatch(ctx context.Context, chunk batch.Chunk) []Outcome {
	reports, err := c.post(ctx, chunk.Coordinates)
	if err != nil {
		c.logger.Error("Chunk request failed", log.Int("chunk", chunk.Index),
			log.Int("coordinates", chunk.Len()), log.Err(err))
		return []Outcome{failure(err, chunk.Coordinates...)}
	}

	// the service may echo coordinates with a different case
	byWire := lo.KeyBy(chunk.Coordinates, wireKey)
	answered := make(map[string]struct{}, len(reports))
	outcomes := make([]Outcome, 0, len(reports)+1)
	for _, r := range reports {
		c.logReport(r)
		key := strings.ToLower(r.Coordinates)
		if coord, ok := byWire[key]; ok {
			answered[key] = struct{}{}
			outcomes = append(outcomes, success(r, coord))
		} else {
			outcomes = append(outcomes, success(r))
		}
	}

	missing := lo.Filter(chunk.Coordinates, func(coord coordinate.Coordinate, _ int) bool {
		_, ok := answered[wireKey(coord)]
		return !ok
	})
	if len(missing) > 0 {
		err = xerrors.Errorf("no report for %d of %d coordinates: %w", len(missing), chunk.Len(),
			ErrMalformedResponse)
		c.logger.Error("Incomplete chunk response", log.Int("chunk", chunk.Index),
			log.Any("coordinates", coordinate.Wires(missing)), log.Err(err))
		outcomes = append(outcomes, failure(err, missing...))
	}
	return outcomes
}

func wireKey(c coordinate.Coordinate) string {
	return strings.ToLower(c.Wire())
}

func (c *Client) queryItem(ctx context.Context, coord coordinate.Coordinate) Outcome {
	reports, err := c.post(ctx, []coordinate.Coordinate{coord})
	if err == nil && len(reports) != 1 {
		err = xerrors.Errorf("expected 1 report, got %d: %w", len(reports), ErrMalformedResponse)
	}
	if err != nil {
		c.logger.Error("Request failed", log.Coordinate(coord.Wire()), log.Err(err))
		return failure(err, coord)
	}
	c.logReport(reports[0])
	return success(reports[0], coord)
}

func (c *Client) logReport(r ComponentReport) {
	c.logger.Info("Component report", log.Coordinate(r.Coordinates),
		log.Int("vulnerabilities", len(r.Vulnerabilities)))
}

type requestBody struct {
	Coordinates []string `json:"coordinates"`
}

// post issues one paced network call.
func (c *Client) post(ctx context.Context, coords []coordinate.Coordinate) (reports []ComponentReport, err error) {
	defer func() { c.metrics.Request(string(c.mode), err) }()

	body, err := json.Marshal(requestBody{Coordinates: coordinate.Wires(coords)})
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.credentials != "" {
		req.Header.Set("Authorization", "Basic "+c.credentials)
	}

	c.limiter.WaitForSlot()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrRequest)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, xerrors.Errorf("%s %q: %w", resp.Status, strings.TrimSpace(string(msg)), ErrUnexpectedStatus)
	}

	return decodeReports(resp.Body)
}

func decodeReports(r io.Reader) ([]ComponentReport, error) {
	var reports *[]ComponentReport
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, xerrors.Errorf("%v: %w", err, ErrMalformedResponse)
	}
	if reports == nil {
		return nil, xerrors.Errorf("null body: %w", ErrMalformedResponse)
	}
	for i, report := range *reports {
		if report.Coordinates == "" {
			return nil, xerrors.Errorf("element %d has no coordinates: %w", i, ErrMalformedResponse)
		}
	}
	return *reports, nil
}
