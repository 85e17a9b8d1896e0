package enhance

import (
	"context"
	"errors"
	"strings"
	"time"
)

const DefaultTimeout = 5 * time.Second

var ErrNotConfigured = errors.New("enhance: no provider configured")

// Client tries each provider in order, each under its own timeout. It never
// fails: when every provider fails the input comes back unchanged.
type Client struct {
	providers []Provider
	timeout   time.Duration
	logger    Logger
}

func NewClient(timeout time.Duration, logger Logger, providers ...Provider) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var ps []Provider
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Client{providers: ps, timeout: timeout, logger: logger}
}

func (c *Client) Configured() bool { return c != nil && len(c.providers) > 0 }

func (c *Client) Enhance(ctx context.Context, text string) string {
	out, err := c.TryEnhance(ctx, text)
	if err != nil {
		return text
	}
	return out
}

// TryEnhance is Enhance with the reason for a fallback to the input exposed.
func (c *Client) TryEnhance(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if !c.Configured() {
		return text, ErrNotConfigured
	}
	var errs []error
	for i, p := range c.providers {
		start := time.Now()
		out, err := c.try(ctx, p, text)
		fields := map[string]any{
			"provider":    p.Name(),
			"tier":        i,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if err == nil {
			c.log(false, "enhance.provider.done", fields)
			return out, nil
		}
		fields["error"] = err.Error()
		c.log(true, "enhance.provider.failed", fields)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return text, errors.Join(errs...)
}

func (c *Client) try(ctx context.Context, p Provider, text string) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := p.Enhance(tctx, text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New(p.Name() + ": empty result")
	}
	return out, nil
}

func (c *Client) log(warn bool, msg string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	if warn {
		c.logger.Warn(msg, fields)
		return
	}
	c.logger.Info(msg, fields)
}
