package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the user service's registration endpoint.
const DefaultEndpoint = "http://localhost:8081/register"

// DisplayLayout renders timestamps as hour:minute:second.
const DisplayLayout = "15:04:05"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

var (
	// ErrUnexpectedStatus wraps fallbacks caused by a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrMalformedResponse wraps fallbacks caused by an undecodable body.
	ErrMalformedResponse = errors.New("malformed response")
)

// timestampLayouts are tried in order when parsing createdAt.
// Zone-less layouts are interpreted in the client's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Client registers users against a fixed endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	now      func() time.Time
	ids      IDGenerator
	location *time.Location
	layout   string
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client. Default: a client with no timeout;
// the request context bounds the call.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithNow sets the time source used for fallback and missing timestamps.
func WithNow(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithIDGenerator sets the fallback id source. Default: LocalIDGenerator.
func WithIDGenerator(g IDGenerator) ClientOption {
	return func(c *Client) {
		c.ids = g
	}
}

// WithLocation sets the zone timestamps are displayed in. Default: time.Local.
func WithLocation(loc *time.Location) ClientOption {
	return func(c *Client) {
		c.location = loc
	}
}

// WithDisplayLayout sets the timestamp display layout. Default: DisplayLayout.
func WithDisplayLayout(layout string) ClientOption {
	return func(c *Client) {
		c.layout = layout
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		now:      time.Now,
		ids:      LocalIDGenerator{},
		location: time.Local,
		layout:   DisplayLayout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the registration URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Register makes one registration attempt. It never fails: any error is
// logged and converted into a Fallback outcome carrying the inputs.
func (c *Client) Register(ctx context.Context, name, email string) Outcome {
	reg, err := c.post(ctx, name, email)
	if err != nil {
		c.logger.Warn("registration backend unreachable or failed; using local fallback",
			"endpoint", c.endpoint,
			"error", err,
		)
		return c.Fallback(name, email, err)
	}

	c.logger.Debug("registration accepted by backend",
		"endpoint", c.endpoint,
		"id", reg.ID,
	)
	return Outcome{Source: SourceRemote, Registration: reg}
}

// Fallback synthesizes a locally generated record for name and email.
func (c *Client) Fallback(name, email string, reason error) Outcome {
	return Outcome{
		Source: SourceFallback,
		Registration: Registration{
			ID:        c.ids.Generate(),
			Name:      name,
			Email:     email,
			CreatedAt: c.display(c.now()),
		},
		Reason: reason,
	}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type registerResponse struct {
	ID        json.RawMessage `json:"id"`
	Name      *string         `json:"name"`
	Email     *string         `json:"email"`
	CreatedAt *string         `json:"createdAt"`
}

func (c *Client) post(ctx context.Context, name, email string) (Registration, error) {
	body, err := json.Marshal(registerRequest{Name: name, Email: email})
	if err != nil {
		return Registration{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Registration{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Registration{}, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Registration{}, fmt.Errorf("%w: server responded with %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return Registration{}, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxBodyBytes {
		return Registration{}, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedResponse, maxBodyBytes)
	}

	return c.decode(data)
}

func (c *Client) decode(data []byte) (Registration, error) {
	var wire registerResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	id, err := coerceID(wire.ID)
	if err != nil {
		return Registration{}, err
	}
	if wire.Name == nil {
		return Registration{}, fmt.Errorf("%w: missing name", ErrMalformedResponse)
	}
	if strings.TrimSpace(*wire.Name) == "" {
		return Registration{}, fmt.Errorf("%w: empty name", ErrMalformedResponse)
	}
	if wire.Email == nil {
		return Registration{}, fmt.Errorf("%w: missing email", ErrMalformedResponse)
	}
	if strings.TrimSpace(*wire.Email) == "" {
		return Registration{}, fmt.Errorf("%w: empty email", ErrMalformedResponse)
	}

	createdAt := c.now()
	if wire.CreatedAt != nil && *wire.CreatedAt != "" {
		if ts, ok := c.parseTimestamp(*wire.CreatedAt); ok {
			createdAt = ts
		} else {
			c.logger.Debug("unparseable createdAt; using current time", "created_at", *wire.CreatedAt)
		}
	}

	return Registration{
		ID:        id,
		Name:      *wire.Name,
		Email:     *wire.Email,
		CreatedAt: c.display(createdAt),
	}, nil
}

// coerceID converts a JSON number or string id to its string form.
// Integral numbers render without fraction or exponent.
func coerceID(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: id: %v", ErrMalformedResponse, err)
	}

	switch id := v.(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("%w: empty id", ErrMalformedResponse)
		}
		// The local namespace belongs to fallback ids.
		if IsLocalID(id) {
			return "", fmt.Errorf("%w: id %q uses the local namespace", ErrMalformedResponse, id)
		}
		return id, nil
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		f, err := id.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: id %s: %v", ErrMalformedResponse, id, err)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: id must be a number or string", ErrMalformedResponse)
	}
}

func (c *Client) parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, c.location); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (c *Client) display(t time.Time) string {
	return t.In(c.location).Format(c.layout)
}
