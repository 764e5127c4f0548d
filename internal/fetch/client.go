// Package fetch downloads form markup over HTTP.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultUserAgent = "formfill/1.0 (+https://github.com/spigell/formfill)"
	DefaultTimeout   = 30 * time.Second
	// DefaultMaxBytes caps the decoded body size.
	DefaultMaxBytes int64 = 5 << 20

	acceptEncoding = "gzip"
	accept         = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5"
)

// ErrTooLarge is returned when a page exceeds the configured size.
var ErrTooLarge = errors.New("response body too large")

type Config struct {
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBytes  int64         `mapstructure:"max-bytes"`
}

// Client fetches HTML pages.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	MaxBytes   int64

	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		UserAgent:  cfg.UserAgent,
		MaxBytes:   cfg.MaxBytes,
		logger:     logger,
	}
}

// Fetch returns the body of rawURL as a string. Only http and https URLs are
// accepted and any status other than 200 is an error.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req = c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(io.LimitReader(reader, c.MaxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > c.MaxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.MaxBytes)
	}

	c.logger.Debug("page fetched", zap.String("url", u.String()), zap.Int("bytes", len(data)))
	return string(data), nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", accept)
	// Setting Accept-Encoding disables the transport's transparent gzip, so
	// the body is decoded above.
	req.Header.Set("Accept-Encoding", acceptEncoding)

	return req
}
