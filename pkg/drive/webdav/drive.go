// Package webdav implements drive.Drive over WebDAV (RFC 4918).
//
// Only PROPFIND, DELETE and GET are used. Every request carries Basic
// credentials; servers that answer with an NTLM challenge are handled by
// the transport.
package webdav

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
)

const (
	opList   = "list"
	opDelete = "delete"
	opFetch  = "fetch"

	methodPropfind = "PROPFIND"
)

var errTooLarge = errors.New("content exceeds fetch size limit")

// Drive is a WebDAV drive. It holds no connection state and is safe for
// concurrent use.
type Drive struct {
	cfg    Config
	base   *url.URL
	root   string // decoded base URL, the reconciliation anchor
	auth   string
	client *http.Client
}

// Option configures a Drive.
type Option func(*Drive)

// WithHTTPClient replaces the HTTP client entirely, challenge handling
// included.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Drive) {
		d.client = c
	}
}

// WithTransport sets the transport underneath the challenge handling.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Drive) {
		d.client.Transport = newChallengeTransport(rt, d.cfg.Username, d.cfg.Password)
	}
}

// New validates cfg and creates a drive. No request is made.
func New(cfg Config, opts ...Option) (*Drive, error) {
	base, err := baseURL(cfg.Host, cfg.Port, cfg.SubPath)
	if err != nil {
		return nil, err
	}
	if err := validateCredentials(cfg.Username, cfg.Password); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per drive
	}

	d := &Drive{
		cfg:  cfg,
		base: base,
		root: base.Scheme + "://" + base.Host + base.Path,
		client: &http.Client{
			Timeout:       cfg.Timeout,
			Transport:     newChallengeTransport(t, cfg.Username, cfg.Password),
			CheckRedirect: keepMethod,
		},
		// Sent even without credentials ("Basic Og=="), which servers
		// treat as anonymous.
		auth: basicAuth(cfg.Username, cfg.Password),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// keepMethod stops redirects that would turn PROPFIND or DELETE into GET.
func keepMethod(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	if via[0].Method != http.MethodGet && via[0].Method != http.MethodHead {
		return http.ErrUseLastResponse
	}
	return nil
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// Protocol implements drive.Drive.
func (d *Drive) Protocol() drive.Protocol {
	return drive.ProtocolWebDAV
}

// BaseURL returns the drive root URL.
func (d *Drive) BaseURL() string {
	return d.base.String()
}

// AuthToken returns the Authorization header value sent with each request.
func (d *Drive) AuthToken() string {
	return d.auth
}

// Ping lists the root and reports whether that succeeded.
func (d *Drive) Ping(ctx context.Context) bool {
	_, err := d.ListFiles(ctx, "")
	if err != nil {
		logger.Debug("WebDAV ping failed", logger.URL(d.root), logger.Err(err))
		return false
	}
	return true
}

// ListFiles issues a Depth 1 PROPFIND on dir.
func (d *Drive) ListFiles(ctx context.Context, dir string) ([]drive.FileEntry, error) {
	p := drive.CleanPath(dir)
	req, err := d.newRequest(ctx, methodPropfind, p, true, strings.NewReader(propfindBody))
	if err != nil {
		return nil, drive.WithOp(err, opList, p)
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", `application/xml; charset="utf-8"`)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, drive.NewProtocolError(opList, p, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, opList, p); err != nil {
		logger.Debug("PROPFIND rejected", logger.URL(req.URL.String()), logger.Status(resp.StatusCode))
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, drive.NewProtocolError(opList, p, err)
	}

	entries, dropped, err := parseMultistatus(body, d.root, drive.ProtocolWebDAV)
	if err != nil {
		return nil, drive.NewParseError(opList, p, err)
	}
	for i := range entries {
		entries[i].ResourceURL = d.entryURL(entries[i].Path, entries[i].IsDirectory).String()
		entries[i].AuthToken = d.auth
	}

	logger.Debug("PROPFIND",
		logger.URL(req.URL.String()),
		logger.Status(resp.StatusCode),
		logger.Entries(len(entries)),
		logger.Dropped(dropped))
	return entries, nil
}

// DeleteFile issues DELETE on the entry. Collections are removed by the
// server recursively.
func (d *Drive) DeleteFile(ctx context.Context, entry drive.FileEntry) (bool, error) {
	p := drive.CleanPath(entry.Path)
	if p == "" {
		return false, &drive.Error{Kind: drive.KindInvalidConfig, Op: opDelete, Message: "refusing to delete the drive root"}
	}
	req, err := d.newRequest(ctx, http.MethodDelete, p, entry.IsDirectory, nil)
	if err != nil {
		return false, drive.WithOp(err, opDelete, p)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return false, drive.NewProtocolError(opDelete, p, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	code := resp.StatusCode
	switch {
	case isSuccess(code):
		return true, nil
	case isAuthFailure(code), code == http.StatusInsufficientStorage:
		return false, checkStatus(resp, opDelete, p)
	default:
		logger.Debug("DELETE rejected", logger.URL(req.URL.String()), logger.Status(code))
		return false, nil
	}
}

// FetchBytes downloads a file with GET.
func (d *Drive) FetchBytes(ctx context.Context, entry drive.FileEntry) ([]byte, error) {
	p := drive.CleanPath(entry.Path)
	if entry.IsDirectory {
		return nil, &drive.Error{Kind: drive.KindInvalidConfig, Op: opFetch, Path: p, Message: "cannot fetch a directory"}
	}
	req, err := d.newRequest(ctx, http.MethodGet, p, false, nil)
	if err != nil {
		return nil, drive.WithOp(err, opFetch, p)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, drive.NewProtocolError(opFetch, p, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, opFetch, p); err != nil {
		return nil, err
	}

	var r io.Reader = resp.Body
	if d.cfg.MaxFetchSize > 0 {
		if resp.ContentLength > d.cfg.MaxFetchSize {
			return nil, drive.NewProtocolError(opFetch, p, errTooLarge)
		}
		r = io.LimitReader(resp.Body, d.cfg.MaxFetchSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, drive.NewProtocolError(opFetch, p, err)
	}
	if d.cfg.MaxFetchSize > 0 && int64(len(data)) > d.cfg.MaxFetchSize {
		return nil, drive.NewProtocolError(opFetch, p, errTooLarge)
	}
	return data, nil
}

// ResourceURL returns the escaped absolute URL of the entry. Dereferencing
// it needs entry.AuthToken as Authorization header.
func (d *Drive) ResourceURL(entry drive.FileEntry) (string, error) {
	return d.entryURL(drive.CleanPath(entry.Path), entry.IsDirectory).String(), nil
}

// entryURL resolves a clean drive path against the base. Collections get a
// trailing slash so servers do not answer with a redirect.
func (d *Drive) entryURL(p string, collection bool) *url.URL {
	u := *d.base
	u.Path = strings.TrimSuffix(d.base.Path, "/") + "/" + p
	if collection && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	return &u
}

func (d *Drive) newRequest(ctx context.Context, method, p string, collection bool, body io.Reader) (*http.Request, error) {
	if hasControl(p) {
		return nil, drive.NewInvalidConfigError(fmt.Sprintf("path %q contains control characters", p), nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.entryURL(p, collection).String(), body)
	if err != nil {
		return nil, drive.NewInvalidConfigError("cannot build request", err)
	}
	req.Header.Set("Authorization", d.auth)
	return req, nil
}

var _ drive.Drive = (*Drive)(nil)
