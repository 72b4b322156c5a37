package webdav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/drive"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    int
		subPath string
		want    string
	}{
		{"DefaultHTTPPortOmitted", "192.168.1.1", 80, "", "http://192.168.1.1"},
		{"CustomPort", "192.168.1.1", 8080, "", "http://192.168.1.1:8080"},
		{"ZeroPort", "nas.local", 0, "", "http://nas.local"},
		{"HTTPSDefaultPortOmitted", "https://nas.local", 443, "", "https://nas.local"},
		{"HTTPSWithPort80", "https://nas.local", 80, "", "https://nas.local:80"},
		{"TrailingSlashes", "http://nas.local///", 80, "", "http://nas.local"},
		{"SubPathNormalized", "nas.local", 5005, "/dav/files/", "http://nas.local:5005/dav/files"},
		{"HostWithPath", "https://cloud.example.com/remote.php/webdav/", 443, "photos", "https://cloud.example.com/remote.php/webdav/photos"},
		{"PortInHostWins", "http://nas.local:9000", 8080, "", "http://nas.local:9000"},
		{"IPv6", "[::1]", 8080, "", "http://[::1]:8080"},
		{"SubPathWithSpace", "nas.local", 80, "my files", "http://nas.local/my%20files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BaseURL(tt.host, tt.port, tt.subPath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseURLInvalid(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
	}{
		{"Empty", "  ", 80},
		{"UnsupportedScheme", "ftp://nas.local", 21},
		{"NoHost", "http://", 80},
		{"BadPort", "nas.local", 70000},
		{"Unparsable", "http://nas local:x", 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BaseURL(tt.host, tt.port, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, drive.KindInvalidConfig)
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, validateCredentials("alice", "p:a:ss"))
	assert.ErrorIs(t, validateCredentials("ali:ce", "x"), drive.KindInvalidConfig)
	assert.ErrorIs(t, validateCredentials("alice", "pa\nss"), drive.KindInvalidConfig)

	_, err := New(Config{Host: "nas.local", Username: "a:b"})
	assert.ErrorIs(t, err, drive.KindInvalidConfig)
}
