// Package apiclient is the HTTP plumbing shared by provider adapters. It maps
// transport failures and upstream statuses onto the provider error taxonomy
// and paces requests with a per-provider token bucket.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ent0n29/vaani/internal/provider"
	"github.com/ent0n29/vaani/internal/reliability"
)

const (
	defaultMaxBody = 64 << 20
	maxErrorDetail = 240
)

type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	maxBody int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outbound requests per second; rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = int(rps) + 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithMaxBody(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// New returns a client whose errors are attributed to the provider name.
// Deadlines come from the caller's context, not from http.Client.Timeout.
func New(name string, opts ...Option) *Client {
	c := &Client{
		name:    name,
		http:    &http.Client{Transport: http.DefaultTransport},
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// Wait blocks until the provider's token bucket admits one request. SDK-based
// adapters call it before handing off to their own transport.
func (c *Client) Wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return c.contextErr(ctx)
		}
		// Wait refuses up front when the deadline is shorter than the queue.
		return provider.Timeout(c.name, err)
	}
	return nil
}

// Do sends req and returns the body of a 2xx response.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextErr(ctx)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, provider.Timeout(c.name, err)
		}
		return nil, provider.Unavailable(c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextErr(ctx)
		}
		return nil, provider.Unavailable(c.name, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.maxBody {
		return nil, provider.Rejected(c.name, fmt.Sprintf("response exceeds %d bytes", c.maxBody))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, c.StatusError(resp.StatusCode, body)
}

// JSON sends in (if non-nil) as a JSON body and decodes a 2xx body into out.
func (c *Client) JSON(ctx context.Context, method, endpoint string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return provider.Rejected(c.name, "encode request: "+err.Error())
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return provider.Rejected(c.name, "build request: "+err.Error())
	}
	copyHeader(req.Header, header)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.Do(req)
	if err != nil {
		return err
	}
	return c.Decode(raw, out)
}

// Raw sends an arbitrary body and returns the 2xx response body untouched.
func (c *Client) Raw(ctx context.Context, method, endpoint string, header http.Header, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, provider.Rejected(c.name, "build request: "+err.Error())
	}
	copyHeader(req.Header, header)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.Do(req)
}

// Form posts url-encoded values.
func (c *Client) Form(ctx context.Context, endpoint string, header http.Header, values url.Values, out any) error {
	raw, err := c.Raw(ctx, http.MethodPost, endpoint, header, "application/x-www-form-urlencoded", []byte(values.Encode()))
	if err != nil {
		return err
	}
	return c.Decode(raw, out)
}

type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Multipart posts form fields plus file parts and decodes the JSON reply.
func (c *Client) Multipart(ctx context.Context, endpoint string, header http.Header, fields map[string]string, files []FilePart, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return provider.Rejected(c.name, "encode field: "+err.Error())
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return provider.Rejected(c.name, "encode file: "+err.Error())
		}
		if _, err := part.Write(f.Data); err != nil {
			return provider.Rejected(c.name, "encode file: "+err.Error())
		}
	}
	if err := mw.Close(); err != nil {
		return provider.Rejected(c.name, "encode multipart: "+err.Error())
	}

	raw, err := c.Raw(ctx, http.MethodPost, endpoint, header, mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return err
	}
	return c.Decode(raw, out)
}

// Decode unmarshals a successful body; a body that does not parse is a
// rejection since retrying the same provider would not help.
func (c *Client) Decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return provider.Rejected(c.name, "malformed response: "+err.Error())
	}
	return nil
}

// RequireKeys fails with ErrMissingCredentials when any value is blank.
func (c *Client) RequireKeys(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s: %w", c.name, provider.ErrMissingCredentials)
		}
	}
	return nil
}

func (c *Client) contextErr(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.Timeout(c.name, err)
	}
	return err
}

// StatusError maps a non-2xx status and its body onto the taxonomy.
func (c *Client) StatusError(code int, body []byte) error {
	detail := fmt.Sprintf("status %d: %s", code, errorDetail(body))
	switch {
	case reliability.IsRetryableHTTPStatus(code):
		return provider.Unavailable(c.name, errors.New(detail))
	case reliability.IsClientError(code):
		return provider.Rejected(c.name, detail)
	default:
		return provider.Unavailable(c.name, errors.New(detail))
	}
}

// errorDetail pulls a message out of the common upstream error shapes.
func errorDetail(body []byte) string {
	var shaped struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  any             `json:"detail"`
	}
	if err := json.Unmarshal(body, &shaped); err == nil {
		if len(shaped.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(shaped.Error, &nested) == nil && nested.Message != "" {
				return truncate(nested.Message)
			}
			var flat string
			if json.Unmarshal(shaped.Error, &flat) == nil && flat != "" {
				return truncate(flat)
			}
		}
		if shaped.Message != "" {
			return truncate(shaped.Message)
		}
		if s, ok := shaped.Detail.(string); ok && s != "" {
			return truncate(s)
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxErrorDetail {
		return s
	}
	return s[:maxErrorDetail] + "..."
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// Header builds an http.Header from alternating key/value pairs.
func Header(kv ...string) http.Header {
	h := make(http.Header, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}
