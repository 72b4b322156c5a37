// Package portmap implements the PMAPPROC_GETPORT call of the portmapper
// (RFC 1833 version 2), used to find the MOUNT and NFS ports of a server.
package portmap

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

const (
	Program = 100000
	Version = 2
	Port    = 111

	ProcNull    = 0
	ProcGetPort = 3

	ProtoTCP = 6
	ProtoUDP = 17
)

// Mapping is the PMAPPROC_GETPORT argument.
type Mapping struct {
	Prog uint32
	Vers uint32
	Prot uint32
	Port uint32
}

// NotRegisteredError reports a program the portmapper does not know.
type NotRegisteredError struct {
	Prog, Vers uint32
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("portmap: program %d version %d not registered", e.Prog, e.Vers)
}

// GetPort asks the portmapper at addr ("host:port") for the TCP port of
// prog/vers.
func GetPort(ctx context.Context, addr string, prog, vers uint32) (int, error) {
	c, err := rpc.Dial(ctx, addr, rpc.Options{Name: "portmap", Program: Program, Version: Version})
	if err != nil {
		return 0, fmt.Errorf("portmap dial %s: %w", addr, err)
	}
	defer func() { _ = c.Close() }()

	args, err := xdr.Marshal(&Mapping{Prog: prog, Vers: vers, Prot: ProtoTCP})
	if err != nil {
		return 0, err
	}
	res, err := c.Call(ctx, ProcGetPort, "GETPORT", args)
	if err != nil {
		return 0, fmt.Errorf("portmap GETPORT: %w", err)
	}
	port, err := xdr.DecodeUint32(bytes.NewReader(res))
	if err != nil {
		return 0, fmt.Errorf("portmap GETPORT reply: %w", err)
	}
	if port == 0 {
		return 0, &NotRegisteredError{Prog: prog, Vers: vers}
	}
	return int(port), nil
}

// Resolve returns "host:port" for prog/vers on host, asking the
// portmapper on pmapPort (Port when 0).
func Resolve(ctx context.Context, host string, pmapPort int, prog, vers uint32) (string, error) {
	if pmapPort == 0 {
		pmapPort = Port
	}
	port, err := GetPort(ctx, net.JoinHostPort(host, strconv.Itoa(pmapPort)), prog, vers)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}
