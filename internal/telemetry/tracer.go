package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by drive, HTTP and RPC spans.
const (
	AttrDriveName      = attribute.Key("drive.name")
	AttrDriveProtocol  = attribute.Key("drive.protocol")
	AttrDriveOperation = attribute.Key("drive.operation")
	AttrDrivePath      = attribute.Key("drive.path")
	AttrDriveEntries   = attribute.Key("drive.entries")
	AttrDriveBytes     = attribute.Key("drive.bytes")
	AttrDriveDeleted   = attribute.Key("drive.deleted")
	AttrDriveReachable = attribute.Key("drive.reachable")
	AttrErrorKind      = attribute.Key("error.kind")

	AttrHTTPMethod = attribute.Key("http.request.method")
	AttrHTTPStatus = attribute.Key("http.response.status_code")

	AttrRPCProgram   = attribute.Key("rpc.onc.program")
	AttrRPCVersion   = attribute.Key("rpc.onc.version")
	AttrRPCProcedure = attribute.Key("rpc.onc.procedure")
	AttrRPCXID       = attribute.Key("rpc.onc.xid")

	AttrSMBShare  = attribute.Key("smb.share")
	AttrNFSExport = attribute.Key("nfs.export")
)

func DriveName(name string) attribute.KeyValue {
	return AttrDriveName.String(name)
}

func DriveProtocol(p string) attribute.KeyValue {
	return AttrDriveProtocol.String(p)
}

func DriveOperation(op string) attribute.KeyValue {
	return AttrDriveOperation.String(op)
}

func DrivePath(p string) attribute.KeyValue {
	return AttrDrivePath.String(p)
}

func DriveEntries(n int) attribute.KeyValue {
	return AttrDriveEntries.Int(n)
}

func DriveBytes(n int64) attribute.KeyValue {
	return AttrDriveBytes.Int64(n)
}

func DriveDeleted(ok bool) attribute.KeyValue {
	return AttrDriveDeleted.Bool(ok)
}

func DriveReachable(ok bool) attribute.KeyValue {
	return AttrDriveReachable.Bool(ok)
}

func ErrorKind(kind string) attribute.KeyValue {
	return AttrErrorKind.String(kind)
}

func HTTPMethod(m string) attribute.KeyValue {
	return AttrHTTPMethod.String(m)
}

func HTTPStatus(code int) attribute.KeyValue {
	return AttrHTTPStatus.Int(code)
}

func RPCXID(xid uint32) attribute.KeyValue {
	return AttrRPCXID.Int64(int64(xid))
}

func SMBShare(share string) attribute.KeyValue {
	return AttrSMBShare.String(share)
}

func NFSExport(export string) attribute.KeyValue {
	return AttrNFSExport.String(export)
}

// StartDriveSpan starts a client span named "drive.<operation>".
func StartDriveSpan(ctx context.Context, drive, protocol, operation, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		DriveName(drive),
		DriveProtocol(protocol),
		DriveOperation(operation),
		DrivePath(path),
	}
	return StartSpan(ctx, "drive."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(base, attrs...)...),
	)
}

// StartRPCSpan starts a client span for one ONC-RPC call, named
// "<program>.<procedure>" (e.g. "nfs.READDIRPLUS").
func StartRPCSpan(ctx context.Context, program string, prog, vers uint32, procedure string) (context.Context, trace.Span) {
	return StartSpan(ctx, program+"."+procedure,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrRPCProgram.Int64(int64(prog)),
			AttrRPCVersion.Int64(int64(vers)),
			AttrRPCProcedure.String(procedure),
		),
	)
}
