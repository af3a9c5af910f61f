package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pipeops/ruleaudit/internal/rule"
)

// Client fetches rules from a running registry.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetRule(ctx context.Context, id int64) (*rule.Rule, error) {
	rules, err := c.fetch(ctx, fmt.Sprintf("%s/v1/rules/%d", c.base, id))
	if err != nil {
		return nil, err
	}
	if len(rules) != 1 {
		return nil, fmt.Errorf("registry returned %d rules for id %d", len(rules), id)
	}
	return rules[0], nil
}

func (c *Client) ListRules(ctx context.Context) ([]*rule.Rule, error) {
	return c.fetch(ctx, c.base+"/v1/rules")
}

func (c *Client) fetch(ctx context.Context, url string) ([]*rule.Rule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrRuleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry request %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}
	rules, err := rule.ParseRules(body)
	if err != nil {
		return nil, fmt.Errorf("parse registry response: %w", err)
	}
	return rules, nil
}
