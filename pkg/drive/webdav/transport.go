package webdav

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/marmos91/dittodrive/internal/auth/ntlm"
	"github.com/marmos91/dittodrive/internal/logger"
)

// challengeTransport answers 401 challenges with the drive credentials.
//
// NTLM (and Negotiate carrying raw NTLM) runs the three-message handshake.
// Basic is retried once when the request went out without credentials.
// Any other challenge is returned to the caller untouched.
type challengeTransport struct {
	base     http.RoundTripper
	username string
	password string
}

func newChallengeTransport(base http.RoundTripper, username, password string) *challengeTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &challengeTransport{base: base, username: username, password: password}
}

func (t *challengeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.username == "" {
		return resp, err
	}
	if !rewindable(req) {
		return resp, nil
	}

	schemes := offeredSchemes(resp.Header)
	switch {
	case schemes["ntlm"]:
		return t.ntlm(req, resp, "NTLM")
	case schemes["negotiate"]:
		return t.ntlm(req, resp, "Negotiate")
	case schemes["basic"]:
		if req.Header.Get("Authorization") != "" {
			return resp, nil
		}
		drain(resp)
		retry, err := cloneRequest(req)
		if err != nil {
			return nil, err
		}
		retry.SetBasicAuth(t.username, t.password)
		return t.base.RoundTrip(retry)
	default:
		return resp, nil
	}
}

func (t *challengeTransport) ntlm(req *http.Request, unauthorized *http.Response, scheme string) (*http.Response, error) {
	drain(unauthorized)

	negotiate, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	negotiate.Header.Set("Authorization", scheme+" "+base64.StdEncoding.EncodeToString(ntlm.BuildNegotiate()))
	resp, err := t.base.RoundTrip(negotiate)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	token := challengeToken(resp.Header, scheme)
	raw, err := base64.StdEncoding.DecodeString(token)
	if token == "" || err != nil {
		return resp, nil
	}
	chal, err := ntlm.ParseChallenge(raw)
	if err != nil {
		logger.Debug("Ignoring malformed NTLM challenge", logger.URL(req.URL.String()), logger.Err(err))
		return resp, nil
	}

	user, domain := ntlm.SplitUsername(t.username)
	msg, err := ntlm.BuildAuthenticate(chal, ntlm.Credentials{Username: user, Password: t.password, Domain: domain})
	if err != nil {
		return resp, nil
	}
	drain(resp)

	authenticate, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	authenticate.Header.Set("Authorization", scheme+" "+base64.StdEncoding.EncodeToString(msg))
	return t.base.RoundTrip(authenticate)
}

// offeredSchemes returns the lower-case auth schemes of all
// WWW-Authenticate headers.
func offeredSchemes(h http.Header) map[string]bool {
	out := make(map[string]bool)
	for _, v := range h.Values("WWW-Authenticate") {
		for _, part := range strings.Split(v, ",") {
			fields := strings.Fields(part)
			if len(fields) == 0 || strings.Contains(fields[0], "=") {
				continue
			}
			out[strings.ToLower(fields[0])] = true
		}
	}
	return out
}

// challengeToken returns the base64 token following scheme in a
// WWW-Authenticate header.
func challengeToken(h http.Header, scheme string) string {
	for _, v := range h.Values("WWW-Authenticate") {
		fields := strings.Fields(v)
		if len(fields) == 2 && strings.EqualFold(fields[0], scheme) {
			return fields[1]
		}
	}
	return ""
}

func rewindable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
