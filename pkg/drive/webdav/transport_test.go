package webdav

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/internal/auth/ntlm"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// ntlmServer accepts requests that complete an NTLM handshake for
// user/password and answers with an empty listing.
func ntlmServer(t *testing.T, scheme, password string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	serverChallenge := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	var rounds atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rounds.Add(1)
		body, _ := io.ReadAll(r.Body)

		h := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(h, scheme+" ")
		if !found {
			w.Header().Set("WWW-Authenticate", scheme)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		switch ntlm.GetMessageType(raw) {
		case ntlm.Negotiate:
			msg := ntlm.BuildChallenge(serverChallenge, "FILESRV")
			w.Header().Set("WWW-Authenticate", scheme+" "+base64.StdEncoding.EncodeToString(msg))
			w.WriteHeader(http.StatusUnauthorized)
		case ntlm.Authenticate:
			auth, err := ntlm.ParseAuthenticate(raw)
			if err != nil || auth.Verify(serverChallenge, password) != nil || auth.Username != "alice" || auth.Domain != "CORP" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if string(body) != propfindBody {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = io.WriteString(w, multistatusXML(xmlResponse{href: "/", props: dirProps()}))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &rounds
}

func TestNTLMChallenge(t *testing.T) {
	for _, scheme := range []string{"NTLM", "Negotiate"} {
		t.Run(scheme, func(t *testing.T) {
			srv, rounds := ntlmServer(t, scheme, "s3cret")
			d, err := New(Config{Host: srv.URL, Username: `CORP\alice`, Password: "s3cret"})
			require.NoError(t, err)

			entries, err := d.ListFiles(context.Background(), "")
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Equal(t, int32(3), rounds.Load())
		})
	}

	t.Run("WrongPassword", func(t *testing.T) {
		srv, _ := ntlmServer(t, "NTLM", "s3cret")
		d, err := New(Config{Host: srv.URL, Username: `CORP\alice`, Password: "nope"})
		require.NoError(t, err)

		_, err = d.ListFiles(context.Background(), "")
		assert.ErrorIs(t, err, drive.KindAuth)
		assert.False(t, d.Ping(context.Background()))
	})
}

func TestBasicChallenge(t *testing.T) {
	var rounds atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rounds.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="dav"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	rt := newChallengeTransport(http.DefaultTransport, "alice", "secret")

	t.Run("RetriesWithoutCredentials", func(t *testing.T) {
		rounds.Store(0)
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), rounds.Load())
		assert.Empty(t, req.Header.Get("Authorization"), "original request modified")
	})

	t.Run("NoRetryWhenCredentialsRejected", func(t *testing.T) {
		rounds.Store(0)
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.SetBasicAuth("alice", "wrong")
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, int32(1), rounds.Load())
	})
}

func TestUnknownChallengeReturnedUnchanged(t *testing.T) {
	var rounds atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rounds.Add(1)
		w.Header().Set("WWW-Authenticate", `Digest realm="dav", nonce="abc"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	d, err := New(Config{Host: srv.URL, Username: "alice", Password: "secret"})
	require.NoError(t, err)
	_, err = d.ListFiles(context.Background(), "")
	assert.ErrorIs(t, err, drive.KindAuth)
	assert.Equal(t, int32(1), rounds.Load())
}

func TestOfferedSchemes(t *testing.T) {
	h := http.Header{}
	h.Add("WWW-Authenticate", "Negotiate")
	h.Add("WWW-Authenticate", `Basic realm="x", NTLM`)
	got := offeredSchemes(h)
	assert.True(t, got["negotiate"])
	assert.True(t, got["basic"])
	assert.True(t, got["ntlm"])
	assert.False(t, got["realm"])
}
