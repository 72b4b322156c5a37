package rpc_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/internal/protocol/rpc/rpctest"
	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

const (
	testProg = 200000
	testVers = 1
)

func dialTest(t *testing.T, srv *rpctest.Server, auth *rpc.UnixAuth) *rpc.Client {
	t.Helper()
	c, err := rpc.Dial(context.Background(), srv.Addr(), rpc.Options{
		Name: "test", Program: testProg, Version: testVers, Auth: auth,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCallEcho(t *testing.T) {
	srv := rpctest.Start(t, func(c rpctest.Call) rpctest.Reply {
		return rpctest.Reply{Results: c.Args}
	})
	auth := &rpc.UnixAuth{Stamp: 7, MachineName: "client", UID: 1000, GID: 100, GIDs: []uint32{4, 24}}
	c := dialTest(t, srv, auth)

	for i := 0; i < 3; i++ {
		args := []byte{0, 0, 0, byte(i)}
		res, err := c.Call(context.Background(), 9, "ECHO", args)
		require.NoError(t, err)
		assert.Equal(t, args, res)
	}

	calls := srv.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, uint32(testProg), calls[0].Program)
	assert.Equal(t, uint32(testVers), calls[0].Version)
	assert.Equal(t, uint32(9), calls[0].Procedure)
	assert.Equal(t, calls[0].XID+1, calls[1].XID)
	assert.Equal(t, auth, calls[0].UnixAuth())
}

func TestUnixAuthWireFormat(t *testing.T) {
	auth := &rpc.UnixAuth{Stamp: 1, MachineName: "host", UID: 1000, GID: 1000, GIDs: []uint32{4, 24}}
	got, err := auth.Encode()
	require.NoError(t, err)

	var want bytes.Buffer
	xdr.WriteUint32(&want, 1)
	xdr.WriteString(&want, "host")
	xdr.WriteUint32(&want, 1000)
	xdr.WriteUint32(&want, 1000)
	xdr.WriteUint32(&want, 2)
	xdr.WriteUint32(&want, 4)
	xdr.WriteUint32(&want, 24)
	assert.Equal(t, want.Bytes(), got)

	_, err = (&rpc.UnixAuth{GIDs: make([]uint32, 17)}).Encode()
	assert.Error(t, err)
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply rpctest.Reply
		check func(t *testing.T, err error)
	}{
		{
			name:  "ProcUnavail",
			reply: rpctest.Reply{AcceptStat: rpc.ProcUnavail},
			check: func(t *testing.T, err error) {
				var ae *rpc.AcceptError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, uint32(rpc.ProcUnavail), ae.Stat)
			},
		},
		{
			name:  "ProgMismatch",
			reply: rpctest.Reply{AcceptStat: rpc.ProgMismatch},
			check: func(t *testing.T, err error) {
				var ae *rpc.AcceptError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, uint32(3), ae.Low)
				assert.Contains(t, ae.Error(), "3-3")
			},
		},
		{
			name:  "AuthTooWeak",
			reply: rpctest.Reply{AuthStat: rpc.AuthTooWeak},
			check: func(t *testing.T, err error) {
				var ae *rpc.AuthError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, uint32(rpc.AuthTooWeak), ae.Stat)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rpctest.Start(t, func(rpctest.Call) rpctest.Reply { return tt.reply })
			c := dialTest(t, srv, nil)
			_, err := c.Call(context.Background(), 1, "PROC", nil)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, c.Broken(), "a well-formed error reply keeps the connection")
		})
	}
}

// pipeServer answers the first call on a pipe with the given raw frames.
func pipeServer(t *testing.T, frames func(xid uint32) [][]byte) *rpc.Client {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })

	go func() {
		msg, err := rpctest.ReadRecord(server)
		if err != nil {
			return
		}
		call, err := rpctest.ParseCall(msg)
		if err != nil {
			return
		}
		for _, f := range frames(call.XID) {
			if _, err := server.Write(f); err != nil {
				return
			}
		}
	}()

	c, err := rpc.NewClient(client, rpc.Options{Name: "test", Program: testProg, Version: testVers})
	require.NoError(t, err)
	return c
}

func frame(data []byte, last bool) []byte {
	hdr := uint32(len(data))
	if last {
		hdr |= 0x80000000
	}
	out := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(out, hdr)
	copy(out[4:], data)
	return out
}

func TestMultiFragmentReply(t *testing.T) {
	c := pipeServer(t, func(xid uint32) [][]byte {
		body := rpctest.EncodeReply(xid, rpctest.Reply{Results: []byte{1, 2, 3, 4, 5, 6, 7, 8}})
		return [][]byte{frame(body[:10], false), frame(body[10:], true)}
	})
	res, err := c.Call(context.Background(), 1, "PROC", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, res)
}

func TestStaleReplySkipped(t *testing.T) {
	c := pipeServer(t, func(xid uint32) [][]byte {
		stale := rpctest.EncodeReply(xid-1, rpctest.Reply{Results: []byte{9, 9, 9, 9}})
		good := rpctest.EncodeReply(xid, rpctest.Reply{Results: []byte{1, 1, 1, 1}})
		return [][]byte{frame(stale, true), frame(good, true)}
	})
	res, err := c.Call(context.Background(), 1, "PROC", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1}, res)
}

func TestCancelledCallBreaksClient(t *testing.T) {
	c := pipeServer(t, func(uint32) [][]byte { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err := c.Call(ctx, 1, "PROC", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, c.Broken())

	_, err = c.Call(context.Background(), 1, "PROC", nil)
	assert.ErrorIs(t, err, rpc.ErrBroken)
}
