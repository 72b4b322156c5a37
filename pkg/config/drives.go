package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/nfs"
	"github.com/marmos91/dittodrive/pkg/drive/smb"
	"github.com/marmos91/dittodrive/pkg/drive/webdav"
)

// Detail returns the short description shown next to a drive name:
// user@host[:port]/subpath. Ports 80, 443 and 445 are implied.
func (d DriveConfig) Detail() string {
	host := d.Host
	switch d.Port {
	case 0, 80, 443, 445:
	default:
		if strings.Contains(host, ":") && !strings.Contains(host, "://") && !strings.HasPrefix(host, "[") {
			host = "[" + host + "]"
		}
		host += ":" + strconv.Itoa(d.Port)
	}
	if d.SubPath != "" {
		if !strings.HasPrefix(d.SubPath, "/") {
			host += "/"
		}
		host += d.SubPath
	}
	if d.Username != "" {
		host = d.Username + "@" + host
	}
	return host
}

// ProtocolKind returns the parsed protocol of the drive.
func (d DriveConfig) ProtocolKind() (drive.Protocol, error) {
	return drive.ParseProtocol(d.Protocol)
}

// FindDrive returns the drive configured under name.
func (c *Config) FindDrive(name string) (*DriveConfig, bool) {
	for i := range c.Drives {
		if c.Drives[i].Name == name {
			return &c.Drives[i], true
		}
	}
	return nil, false
}

// AddDrive appends d after applying defaults. Names must be unique.
func (c *Config) AddDrive(d DriveConfig) error {
	applyDriveDefaults(&d)
	if _, ok := c.FindDrive(d.Name); ok {
		return fmt.Errorf("drive %q already exists", d.Name)
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid drive %q: %w", d.Name, err)
	}
	c.Drives = append(c.Drives, d)
	return nil
}

// RemoveDrive deletes the drive configured under name.
func (c *Config) RemoveDrive(name string) error {
	for i := range c.Drives {
		if c.Drives[i].Name == name {
			c.Drives = append(c.Drives[:i], c.Drives[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("drive %q not found", name)
}

// CreateDrive builds the backend of the drive configured under name.
func CreateDrive(cfg *Config, name string) (drive.Drive, error) {
	d, ok := cfg.FindDrive(name)
	if !ok {
		return nil, fmt.Errorf("drive %q not found", name)
	}
	return NewDrive(cfg, *d)
}

// NewDrive builds the backend described by d. Settings shared across
// drives (WebDAV timeout, fetch limit) come from cfg.
func NewDrive(cfg *Config, d DriveConfig) (drive.Drive, error) {
	p, err := d.ProtocolKind()
	if err != nil {
		return nil, err
	}

	var (
		dr   drive.Drive
		dErr error
	)
	switch p {
	case drive.ProtocolWebDAV:
		var w *webdav.Drive
		w, dErr = NewWebDAVDrive(cfg, d)
		dr = w
	case drive.ProtocolSMB:
		var s *smb.Drive
		s, dErr = NewSMBDrive(cfg, d)
		dr = s
	case drive.ProtocolNFS:
		var n *nfs.Drive
		n, dErr = NewNFSDrive(cfg, d)
		dr = n
	default:
		return nil, drive.NewInvalidConfigError(fmt.Sprintf("unsupported protocol %s", p), nil)
	}
	// A typed nil must not escape as a non-nil interface.
	if dErr != nil {
		return nil, dErr
	}
	return dr, nil
}

// NewWebDAVDrive builds a WebDAV backend.
func NewWebDAVDrive(cfg *Config, d DriveConfig) (*webdav.Drive, error) {
	return webdav.New(webdav.Config{
		Host:               d.Host,
		Port:               d.Port,
		Username:           d.Username,
		Password:           d.Password,
		SubPath:            d.SubPath,
		Timeout:            cfg.WebDAV.Timeout,
		InsecureSkipVerify: cfg.WebDAV.InsecureSkipVerify,
		MaxFetchSize:       cfg.Fetch.MaxSize.Int64(),
	})
}

// NewSMBDrive builds an SMB backend. It is also used without a share to
// list the shares of a server.
func NewSMBDrive(cfg *Config, d DriveConfig) (*smb.Drive, error) {
	return smb.New(smb.Config{
		Host:         d.Host,
		Port:         d.Port,
		Username:     d.Username,
		Password:     d.Password,
		Domain:       d.Domain,
		Share:        d.SubPath,
		MaxFetchSize: cfg.Fetch.MaxSize.Int64(),
	})
}

// NewNFSDrive builds an NFS backend. It is also used without an export to
// list the exports of a server.
func NewNFSDrive(cfg *Config, d DriveConfig) (*nfs.Drive, error) {
	return nfs.New(nfs.Config{
		Host:         d.Host,
		Port:         d.Port,
		MountPort:    d.MountPort,
		Export:       d.SubPath,
		UID:          d.UID,
		GID:          d.GID,
		Privileged:   d.Privileged,
		MaxFetchSize: cfg.Fetch.MaxSize.Int64(),
	})
}

// SplitHostPort accepts "host:port" as typed on the command line. Hosts
// with a scheme and bare IPv6 addresses are returned unchanged with port 0.
func SplitHostPort(hostport string) (string, int, error) {
	if strings.Contains(hostport, "://") || !strings.Contains(hostport, ":") {
		return hostport, 0, nil
	}
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		// Bare IPv6 address
		return hostport, 0, nil
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", hostport)
	}
	return host, n, nil
}
