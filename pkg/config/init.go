package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# dittodrive Configuration File
#
# Every value can be overridden with an environment variable:
#   DITTODRIVE_<SECTION>_<KEY>, e.g. DITTODRIVE_LOGGING_LEVEL=DEBUG

logging:
  # DEBUG, INFO, WARN or ERROR
  level: WARN
  # text or json
  format: text
  # stdout, stderr or a file path
  output: stderr

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: http://localhost:4040
    profile_types: [cpu, alloc_objects, inuse_space, goroutines]

metrics:
  enabled: false
  listen: ":9090"
  # textfile: /var/lib/node_exporter/textfile/dittodrive.prom

listing:
  directories_first: true
  show_hidden: false

webdav:
  timeout: 20s
  insecure_skip_verify: false

fetch:
  # Largest file loaded into memory by "dittodrive get" and the content API
  max_size: 256Mi

server:
  listen: ":8089"
  read_timeout: 10s
  write_timeout: 5m
  shutdown_timeout: 30s

# Drives are usually added with "dittodrive drive add".
drives: []
#  - name: nas
#    protocol: webdav
#    host: https://nas.local
#    port: 5006
#    username: alice
#    password: secret
#    sub_path: /media
#  - name: office
#    protocol: smb
#    host: fileserver
#    username: alice
#    password: secret
#    domain: WORKGROUP
#    sub_path: public
#  - name: lab
#    protocol: nfs
#    host: 10.0.0.5
#    sub_path: /srv/export
#    uid: 1000
#    gid: 1000
`

// InitConfig writes a commented configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
