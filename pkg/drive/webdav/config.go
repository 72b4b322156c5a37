package webdav

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// DefaultTimeout bounds every request, including reading the response.
const DefaultTimeout = 20 * time.Second

// Config describes one WebDAV drive.
type Config struct {
	// Host is a bare host name or address, or a URL with an http or https
	// scheme and optionally a path.
	Host string

	// Port is appended to the host unless it is 0 or the scheme default.
	Port int

	Username string
	Password string

	// SubPath is the collection under the host that acts as the drive root.
	SubPath string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	InsecureSkipVerify bool

	// MaxFetchSize caps FetchBytes. 0 means unlimited.
	MaxFetchSize int64
}

// BaseURL builds the drive root URL from its configuration parts.
//
// A bare host gets the http scheme, trailing slashes are dropped, the port
// is added only when it differs from the scheme default and the sub path is
// appended with its slashes normalized.
func BaseURL(host string, port int, subPath string) (string, error) {
	u, err := baseURL(host, port, subPath)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func baseURL(host string, port int, subPath string) (*url.URL, error) {
	h := strings.TrimSpace(host)
	if h == "" {
		return nil, drive.NewInvalidConfigError("webdav host is empty", nil)
	}
	if !strings.Contains(h, "://") {
		h = "http://" + h
	}
	h = strings.TrimRight(h, "/")

	u, err := url.Parse(h)
	if err != nil {
		return nil, drive.NewInvalidConfigError(fmt.Sprintf("invalid webdav host %q", host), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, drive.NewInvalidConfigError(fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Hostname() == "" {
		return nil, drive.NewInvalidConfigError(fmt.Sprintf("invalid webdav host %q", host), nil)
	}
	if port < 0 || port > 65535 {
		return nil, drive.NewInvalidConfigError(fmt.Sprintf("invalid port %d", port), nil)
	}

	// A port written in the host wins over the configured one.
	if u.Port() == "" && port != 0 && port != defaultPort(u.Scheme) {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}

	if sub := strings.Trim(subPath, "/"); sub != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + sub
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u, nil
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// validateCredentials rejects credentials that cannot be carried in a
// Basic Authorization header.
func validateCredentials(user, pass string) error {
	if strings.Contains(user, ":") {
		return drive.NewInvalidConfigError("username must not contain ':'", nil)
	}
	if hasControl(user) || hasControl(pass) {
		return drive.NewInvalidConfigError("credentials contain control characters", nil)
	}
	return nil
}

func hasControl(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}
