package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

// Instrument wraps d so that every operation is logged, traced and
// counted. m may be nil.
func Instrument(d Drive, name string, m metrics.DriveMetrics) Drive {
	return &instrumented{Drive: d, name: name, metrics: m}
}

type instrumented struct {
	Drive
	name    string
	metrics metrics.DriveMetrics
}

// Unwrap returns the instrumented backend.
func (i *instrumented) Unwrap() Drive {
	return i.Drive
}

// Close releases the wrapped backend's session.
func (i *instrumented) Close() error {
	return Close(i.Drive)
}

func (i *instrumented) begin(ctx context.Context, op, path string) (context.Context, func(err error)) {
	proto := i.Drive.Protocol().String()
	ctx, span := telemetry.StartDriveSpan(ctx, i.name, proto, op, path)

	lc := logger.NewLogContext(i.name, proto).
		WithOperation(op).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)
	start := time.Now()

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = KindOf(err).String()
			telemetry.RecordError(ctx, err)
			telemetry.SetAttributes(ctx, telemetry.ErrorKind(status))
			logger.InfoCtx(ctx, "Drive operation failed", logger.Path(path), logger.ErrorKind(status), logger.Err(err), logger.DurationMs(start))
		} else {
			logger.DebugCtx(ctx, "Drive operation done", logger.Path(path), logger.DurationMs(start))
		}
		metrics.ObserveOperation(i.metrics, proto, op, status, time.Since(start))
		span.End()
	}
}

func (i *instrumented) Ping(ctx context.Context) bool {
	ctx, done := i.begin(ctx, "ping", "")
	ok := i.Drive.Ping(ctx)
	telemetry.SetAttributes(ctx, telemetry.DriveReachable(ok))
	metrics.SetReachable(i.metrics, i.name, i.Drive.Protocol().String(), ok)
	done(nil)
	return ok
}

func (i *instrumented) ListFiles(ctx context.Context, dir string) ([]FileEntry, error) {
	ctx, done := i.begin(ctx, "list", dir)
	entries, err := i.Drive.ListFiles(ctx, dir)
	if err == nil {
		telemetry.SetAttributes(ctx, telemetry.DriveEntries(len(entries)))
		metrics.RecordEntries(i.metrics, i.Drive.Protocol().String(), len(entries))
	}
	done(err)
	return entries, err
}

func (i *instrumented) DeleteFile(ctx context.Context, entry FileEntry) (bool, error) {
	ctx, done := i.begin(ctx, "delete", entry.Path)
	ok, err := i.Drive.DeleteFile(ctx, entry)
	telemetry.SetAttributes(ctx, telemetry.DriveDeleted(ok))
	done(err)
	return ok, err
}

func (i *instrumented) FetchBytes(ctx context.Context, entry FileEntry) ([]byte, error) {
	ctx, done := i.begin(ctx, "fetch", entry.Path)
	data, err := i.Drive.FetchBytes(ctx, entry)
	if err == nil {
		telemetry.SetAttributes(ctx, telemetry.DriveBytes(int64(len(data))))
		metrics.RecordBytes(i.metrics, i.Drive.Protocol().String(), int64(len(data)))
	}
	done(err)
	return data, err
}
