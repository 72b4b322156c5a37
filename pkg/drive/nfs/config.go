package nfs

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/marmos91/dittodrive/internal/protocol/nfs3"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// Config describes one NFS export.
type Config struct {
	Host string

	// Port of the NFS service. 0 asks the portmapper.
	Port int

	// MountPort of the MOUNT service. 0 asks the portmapper.
	MountPort int

	// PortmapPort of the portmapper. 0 means 111.
	PortmapPort int

	// Export is the exported directory ("/srv/media"). A missing leading
	// "/" is added. Only ListExports works without one.
	Export string

	// AUTH_UNIX identity presented to the server.
	UID         uint32
	GID         uint32
	MachineName string

	// Privileged binds client sockets to ports below 1024.
	Privileged bool

	// MaxFetchSize caps FetchBytes. 0 disables the limit.
	MaxFetchSize int64
}

func (c *Config) normalize() error {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		return drive.NewInvalidConfigError("nfs host is empty", nil)
	}
	if strings.ContainsAny(c.Host, "/ ") {
		return drive.NewInvalidConfigError(fmt.Sprintf("invalid nfs host %q", c.Host), nil)
	}
	for _, p := range []int{c.Port, c.MountPort, c.PortmapPort} {
		if p < 0 || p > 65535 {
			return drive.NewInvalidConfigError(fmt.Sprintf("invalid port %d", p), nil)
		}
	}
	if c.Export != "" {
		c.Export = path.Clean("/" + c.Export)
	}
	if c.MachineName == "" {
		c.MachineName, _ = os.Hostname()
		if c.MachineName == "" {
			c.MachineName = "dittodrive"
		}
	}
	return nil
}

// hostPort joins host and port, leaving the port out when it is unset or
// the NFS default.
func hostPort(host string, port int) string {
	if port == 0 || port == nfs3.Port {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// resourceURL builds nfs://host[:port]/export/path.
func resourceURL(cfg Config, p string) string {
	u := url.URL{
		Scheme: "nfs",
		Host:   hostPort(cfg.Host, cfg.Port),
		Path:   strings.TrimSuffix(cfg.Export, "/") + "/" + p,
	}
	return u.String()
}
