package metrics

import "time"

// DriveMetrics records drive operations. A nil DriveMetrics is valid and
// records nothing; use the package helpers below to call it.
type DriveMetrics interface {
	// ObserveOperation records one drive operation. status is "ok" or the
	// error kind (Auth, Protocol, ...).
	ObserveOperation(protocol, operation, status string, duration time.Duration)

	// RecordEntries records the number of entries returned by a listing.
	RecordEntries(protocol string, n int)

	// RecordBytes records bytes returned by FetchBytes.
	RecordBytes(protocol string, n int64)

	// SetReachable records the last ping result of a drive.
	SetReachable(drive, protocol string, reachable bool)
}

var newPrometheusDriveMetrics func() DriveMetrics

// RegisterDriveMetricsConstructor is called by pkg/metrics/prometheus
// during package initialization.
func RegisterDriveMetricsConstructor(constructor func() DriveMetrics) {
	newPrometheusDriveMetrics = constructor
}

// NewDriveMetrics returns the Prometheus-backed implementation, or nil when
// metrics are disabled or the prometheus package is not linked in.
//
//	metrics.InitRegistry()
//	m := metrics.NewDriveMetrics()
//	d = drive.Instrument(d, "nas", m)
func NewDriveMetrics() DriveMetrics {
	if !IsEnabled() || newPrometheusDriveMetrics == nil {
		return nil
	}
	return newPrometheusDriveMetrics()
}

// ObserveOperation records an operation if m is non-nil.
func ObserveOperation(m DriveMetrics, protocol, operation, status string, duration time.Duration) {
	if m != nil {
		m.ObserveOperation(protocol, operation, status, duration)
	}
}

// RecordEntries records a listing size if m is non-nil.
func RecordEntries(m DriveMetrics, protocol string, n int) {
	if m != nil {
		m.RecordEntries(protocol, n)
	}
}

// RecordBytes records fetched bytes if m is non-nil.
func RecordBytes(m DriveMetrics, protocol string, n int64) {
	if m != nil {
		m.RecordBytes(protocol, n)
	}
}

// SetReachable records a ping result if m is non-nil.
func SetReachable(m DriveMetrics, drive, protocol string, reachable bool) {
	if m != nil {
		m.SetReachable(drive, protocol, reachable)
	}
}
