package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const (
	robotsTTL        = 6 * time.Hour
	robotsFailureTTL = 10 * time.Minute
	maxRobotsBytes   = 512 << 10
)

// RobotsPolicy is the robots.txt verdict for one URL
type RobotsPolicy struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker answers robots.txt queries for document hosts. Parsed files
// are cached per origin; unreachable files are cached as allow-all for a
// shorter time.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	agent     string
	cache     *gocache.Cache
	logger    *zap.Logger
}

// NewRobotsChecker creates a checker that identifies as userAgent
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		agent:     NormalizeUserAgent(userAgent),
		cache:     gocache.New(robotsTTL, time.Hour),
		logger:    zap.NewNop(),
	}
}

// WithProxy routes robots.txt requests through the configured proxies
func (r *RobotsChecker) WithProxy(httpProxy, httpsProxy, noProxy string) *RobotsChecker {
	r.client.Transport = &http.Transport{Proxy: NewProxyFunc(httpProxy, httpsProxy, noProxy)}
	return r
}

// WithLogger sets the logger
func (r *RobotsChecker) WithLogger(l *zap.Logger) *RobotsChecker {
	if l != nil {
		r.logger = l
	}
	return r
}

// Check returns the policy for rawURL. Only http and https URLs are
// subject to robots.txt.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsPolicy, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return RobotsPolicy{}, fmt.Errorf("parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return RobotsPolicy{Allowed: true}, nil
	}

	data := r.load(ctx, parsed.Scheme+"://"+parsed.Host)

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	policy := RobotsPolicy{Allowed: data.TestAgent(path, r.agent)}
	if group := data.FindGroup(r.agent); group != nil {
		policy.CrawlDelay = group.CrawlDelay
	}
	return policy, nil
}

// load returns the parsed robots.txt for origin, fetching it on a miss
func (r *RobotsChecker) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	if v, ok := r.cache.Get(origin); ok {
		return v.(*robotstxt.RobotsData)
	}

	data, err := r.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		// Unreachable robots.txt does not block the document
		r.logger.Debug("robots.txt unavailable, allowing", zap.String("origin", origin), zap.Error(err))
		allowAll, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
		r.cache.Set(origin, allowAll, robotsFailureTTL)
		return allowAll
	}
	r.cache.Set(origin, data, gocache.DefaultExpiration)
	return data
}

func (r *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx allows everything, 5xx disallows everything
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

// Clear drops every cached robots.txt
func (r *RobotsChecker) Clear() {
	r.cache.Flush()
}

// NormalizeUserAgent reduces a user agent to the product token matched
// against robots.txt User-agent lines
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
