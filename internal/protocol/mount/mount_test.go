package mount

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/internal/protocol/rpc"
	"github.com/marmos91/dittodrive/internal/protocol/rpc/rpctest"
	"github.com/marmos91/dittodrive/internal/protocol/xdr"
)

func fakeMountd(t *testing.T) *rpctest.Server {
	exports := []Export{{Dir: "/srv/media", Groups: []string{"192.168.1.0/24", "nas"}}, {Dir: "/srv/backup"}}
	return rpctest.Start(t, func(c rpctest.Call) rpctest.Reply {
		switch c.Procedure {
		case ProcExport:
			return rpctest.Reply{Results: EncodeExports(exports)}
		case ProcMnt:
			var p dirpath
			if err := xdr.Unmarshal(bytes.NewReader(c.Args), &p); err != nil {
				return rpctest.Reply{AcceptStat: rpc.GarbageArgs}
			}
			switch p.Path {
			case "/srv/media":
				return rpctest.Reply{Results: EncodeMntReply(OK, []byte{1, 2, 3, 4, 5}, []uint32{rpc.AuthUnix})}
			case "/srv/backup":
				return rpctest.Reply{Results: EncodeMntReply(ErrAccess, nil, nil)}
			default:
				return rpctest.Reply{Results: EncodeMntReply(ErrNoEnt, nil, nil)}
			}
		case ProcUmnt:
			return rpctest.Reply{}
		default:
			return rpctest.Reply{AcceptStat: rpc.ProcUnavail}
		}
	})
}

func TestMountClient(t *testing.T) {
	srv := fakeMountd(t)
	c, err := Dial(context.Background(), srv.Addr(), &rpc.UnixAuth{MachineName: "test"}, false)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	t.Run("Exports", func(t *testing.T) {
		exports, err := c.Exports(ctx)
		require.NoError(t, err)
		require.Len(t, exports, 2)
		assert.Equal(t, "/srv/media", exports[0].Dir)
		assert.Equal(t, []string{"192.168.1.0/24", "nas"}, exports[0].Groups)
		assert.Equal(t, "/srv/backup", exports[1].Dir)
		assert.Empty(t, exports[1].Groups)
	})

	t.Run("Mnt", func(t *testing.T) {
		fh, flavors, err := c.Mnt(ctx, "/srv/media")
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3, 4, 5}, fh)
		assert.Equal(t, []uint32{rpc.AuthUnix}, flavors)
	})

	t.Run("MntDenied", func(t *testing.T) {
		_, _, err := c.Mnt(ctx, "/srv/backup")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.True(t, se.IsAccessDenied())
		assert.Contains(t, se.Error(), "MNT3ERR_ACCES")
	})

	t.Run("MntMissing", func(t *testing.T) {
		_, _, err := c.Mnt(ctx, "/nope")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, uint32(ErrNoEnt), se.Status)
		assert.False(t, se.IsAccessDenied())
	})

	t.Run("Umnt", func(t *testing.T) {
		assert.NoError(t, c.Umnt(ctx, "/srv/media"))
	})
}

func TestDecodeExportsEmpty(t *testing.T) {
	exports, err := decodeExports(EncodeExports(nil))
	require.NoError(t, err)
	assert.Empty(t, exports)

	_, err = decodeExports([]byte{0, 0, 0, 1})
	assert.Error(t, err)
}
