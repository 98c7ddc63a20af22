package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dirneetapp/carta2026.io/internal/config"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// ImageClient fetches remote image bytes and metadata.
type ImageClient interface {
	// ContentType performs a metadata-only request and returns the bare media type.
	ContentType(ctx context.Context, url string) (string, error)
	// Download fetches the full response body.
	Download(ctx context.Context, url string) ([]byte, error)
}

type imageClient struct {
	rl         ratelimit.Limiter
	httpClient *resty.Client
	timeout    time.Duration
}

func NewImageClient(cfg config.AssetsConfig) ImageClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5")

	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
		log.Infof("🔗 Fetching images through proxy: %s", cfg.Proxy)
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	return &imageClient{
		rl:         rl,
		httpClient: client,
		timeout:    timeout,
	}
}

func (c *imageClient) ContentType(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return "", err
	}

	raw := resp.header.Get("Content-Type")
	if raw == "" {
		return "", fmt.Errorf("no content type for %s", url)
	}

	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("invalid content type %q: %w", raw, err)
	}

	log.Debugf("Resolved content type %s for %s", mediaType, url)
	return strings.ToLower(mediaType), nil
}

func (c *imageClient) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	log.Debugf("Downloaded %d bytes from %s", len(resp.body), url)
	return resp.body, nil
}

type fetched struct {
	header http.Header
	body   []byte
}

func (c *imageClient) do(ctx context.Context, method, url string) (*fetched, error) {
	c.rl.Take()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := c.httpClient.R().SetContext(reqCtx)

	var (
		resp *resty.Response
		err  error
	)
	if method == http.MethodHead {
		resp, err = req.Head(url)
	} else {
		resp, err = req.Get(url)
	}

	if err != nil {
		// Check if this is a context cancellation from the parent context
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	return &fetched{header: resp.Header(), body: resp.Bytes()}, nil
}
