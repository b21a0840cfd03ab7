// Package portal talks to the author cabinet over plain HTTP: it logs in with
// a form, scrapes the author roster and submits corrected names through the
// profile form.
package portal

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/shpitdev/fiofix/pkg/logger"
	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

const (
	loginPath   = "cabinet/login.php"
	authorsPath = "cabinet/authors.php"

	defaultPageSize = 200
	maxPages        = 10000
	maxBodyBytes    = 16 << 20
)

// Options configures a Client.
type Options struct {
	// BaseURL is the site root, e.g. "https://orgm.riep.ru".
	BaseURL     string
	Credentials Credentials
	// DefaultCAPath is optional and, when provided, is used as the TLS trust store.
	DefaultCAPath string
	// PageSize is the roster page length. Zero means 200.
	PageSize int
	// KeepAbbreviated keeps rows already shaped like "Surname I. I.".
	KeepAbbreviated bool
	Timeout         time.Duration
	UserAgent       string
	Logger          logger.Logger
}

// Client is a cookie-session client for the cabinet.
//
// It is safe for concurrent use; re-login after session expiry is serialized.
type Client struct {
	baseURL         *url.URL
	creds           Credentials
	http            *http.Client
	pageSize        int
	keepAbbreviated bool
	userAgent       string
	log             logger.Logger

	mu       sync.Mutex
	session  int
	loggedIn bool
}

var (
	_ core.RosterSource = (*Client)(nil)
	_ core.Corrector    = (*Client)(nil)
)

// NewClient validates opts and builds a client. It does not log in yet.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	hc, err := newHTTPClient(opts.DefaultCAPath, opts.Timeout)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:         base,
		creds:           opts.Credentials,
		http:            hc,
		pageSize:        opts.PageSize,
		keepAbbreviated: opts.KeepAbbreviated,
		userAgent:       strings.TrimSpace(opts.UserAgent),
		log:             opts.Logger,
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.userAgent == "" {
		c.userAgent = "fiofix"
	}
	if c.log == nil {
		c.log = logger.GetDefault()
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("portal base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse portal base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("portal base URL must include a host (got %q)", raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func newHTTPClient(defaultCAPath string, timeout time.Duration) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p := strings.TrimSpace(defaultCAPath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read DEFAULT_CA_PATH file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(b); !ok {
			return nil, fmt.Errorf("parse DEFAULT_CA_PATH PEM: no certs found")
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Transport: tr,
		Jar:       jar,
		Timeout:   timeout,
	}, nil
}

// Login opens a new session.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if c.creds.Email == "" || c.creds.Password == "" {
		return fmt.Errorf("login: %w", ErrLoginRejected)
	}
	form := url.Values{}
	form.Set("email", c.creds.Email)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(loginPath).String(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, body, err := c.do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return newHTTPError("login", resp, body)
	}
	if isLoginPage(resp) {
		c.loggedIn = false
		return ErrLoginRejected
	}
	c.loggedIn = true
	c.session++
	c.log.Debug("portal session opened", "session", c.session)
	return nil
}

// ensureSession logs in once and returns the current session generation.
func (c *Client) ensureSession(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loggedIn {
		if err := c.loginLocked(ctx); err != nil {
			return 0, err
		}
	}
	return c.session, nil
}

// renew logs in again unless another goroutine already did so after seen.
func (c *Client) renew(ctx context.Context, seen int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn && c.session != seen {
		return nil
	}
	c.log.Warn("portal session expired, logging in again")
	c.loggedIn = false
	return c.loginLocked(ctx)
}

// FetchRoster walks every page of the author table filtered by filter.
func (c *Client) FetchRoster(ctx context.Context, filter string) ([]schema.NameRecord, error) {
	out := make([]schema.NameRecord, 0)
	skipped := 0
	for pageNo, start := 0, 0; pageNo < maxPages; pageNo, start = pageNo+1, start+c.pageSize {
		q := url.Values{}
		q.Set("col1_filter", filter)
		q.Set("start", strconv.Itoa(start))
		q.Set("length", strconv.Itoa(c.pageSize))
		u := c.resolve(authorsPath)
		u.RawQuery = q.Encode()

		p, err := c.getPage(ctx, "authors", u.String())
		if err != nil {
			return out, err
		}
		rows, sk, hasNext := p.rosterPage(c.keepAbbreviated)
		out = append(out, rows...)
		skipped += sk
		c.log.Debug("scraped roster page", "start", start, "rows", len(rows), "skipped", sk)
		if !hasNext || len(rows)+sk == 0 {
			break
		}
	}
	c.log.Info("roster scraped", "filter", filter, "authors", len(out), "already_abbreviated", skipped)
	return out, nil
}

// ApplyCorrection submits newName through the profile form behind link.
//
// Expired sessions are renewed and reported as a once-retryable error.
func (c *Client) ApplyCorrection(ctx context.Context, link, newName string) error {
	seen, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}
	expired := func() error {
		if err := c.renew(ctx, seen); err != nil {
			return err
		}
		return &core.LimitedTransientError{Err: ErrSessionExpired, ExtraRetries: 1}
	}

	p, err := c.fetchPage(ctx, "profile", c.resolveLink(link))
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return expired()
		}
		return err
	}
	form, err := p.profileForm()
	if err != nil {
		return fmt.Errorf("%s: %w", link, err)
	}
	form.fields.Set("fio", newName)
	encoded, err := form.encode(p.enc)
	if err != nil {
		return err
	}

	var req *http.Request
	if form.method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, form.action, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		u, perr := url.Parse(form.action)
		if perr != nil {
			return fmt.Errorf("parse form action: %w", perr)
		}
		u.RawQuery = encoded
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
	if err != nil {
		return err
	}

	resp, body, err := c.do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return newHTTPError("submitProfile", resp, body)
	}
	if isLoginPage(resp) {
		return expired()
	}
	return nil
}

// getPage fetches an authenticated page, renewing the session once.
func (c *Client) getPage(ctx context.Context, op, rawURL string) (*page, error) {
	seen, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	p, err := c.fetchPage(ctx, op, rawURL)
	if !errors.Is(err, ErrSessionExpired) {
		return p, err
	}
	if err := c.renew(ctx, seen); err != nil {
		return nil, err
	}
	return c.fetchPage(ctx, op, rawURL)
}

func (c *Client) fetchPage(ctx context.Context, op, rawURL string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError(op, resp, body)
	}
	if isLoginPage(resp) {
		return nil, ErrSessionExpired
	}
	return parsePage(body, resp.Header.Get("Content-Type"), resp.Request.URL)
}

func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, err
	}
	return resp, b, nil
}

func (c *Client) resolve(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	return c.baseURL.ResolveReference(&url.URL{Path: relPath})
}

func (c *Client) resolveLink(link string) string {
	rel, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return link
	}
	return c.baseURL.ResolveReference(rel).String()
}

// isLoginPage reports whether redirects ended on the login form.
func isLoginPage(resp *http.Response) bool {
	if resp == nil || resp.Request == nil || resp.Request.URL == nil {
		return false
	}
	return strings.HasSuffix(resp.Request.URL.Path, "/"+loginPath)
}
