package xdr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaquePadding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		size int
	}{
		{"Empty", nil, 4},
		{"One", []byte{1}, 8},
		{"Three", []byte{1, 2, 3}, 8},
		{"Four", []byte{1, 2, 3, 4}, 8},
		{"Five", []byte{1, 2, 3, 4, 5}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			WriteOpaque(&buf, tt.data)
			assert.Equal(t, tt.size, buf.Len())

			WriteUint32(&buf, 0xdeadbeef)
			r := bytes.NewReader(buf.Bytes())
			got, err := DecodeOpaque(r)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(got))
			next, err := DecodeUint32(r)
			require.NoError(t, err)
			assert.Equal(t, uint32(0xdeadbeef), next, "padding not consumed")
		})
	}
}

func TestScalars(t *testing.T) {
	var buf bytes.Buffer
	WriteUint64(&buf, 1<<40+7)
	WriteBool(&buf, true)
	WriteBool(&buf, false)
	WriteString(&buf, "export")

	r := bytes.NewReader(buf.Bytes())
	u, err := DecodeUint64(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40+7), u)
	b, err := DecodeBool(r)
	require.NoError(t, err)
	assert.True(t, b)
	b, err = DecodeBool(r)
	require.NoError(t, err)
	assert.False(t, b)
	s, err := DecodeString(r)
	require.NoError(t, err)
	assert.Equal(t, "export", s)
	assert.Zero(t, r.Len())
}

func TestDecodeOpaqueLimits(t *testing.T) {
	var buf bytes.Buffer
	WriteUint32(&buf, MaxOpaque+1)
	_, err := DecodeOpaque(&buf)
	assert.Error(t, err)

	buf.Reset()
	WriteUint32(&buf, 10)
	buf.Write([]byte{1, 2})
	_, err = DecodeOpaque(&buf)
	assert.Error(t, err)
}

func TestDecodeFixed(t *testing.T) {
	r := bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 0, 0})
	dst := make([]byte, 9)
	require.NoError(t, DecodeFixed(r, dst))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, dst)
	assert.Zero(t, r.Len())
}

func TestMarshalMatchesHandEncoding(t *testing.T) {
	args := struct {
		Dir  []byte
		Name string
	}{Dir: []byte{0xaa, 0xbb}, Name: "photo.jpg"}

	got, err := Marshal(&args)
	require.NoError(t, err)

	var want bytes.Buffer
	WriteOpaque(&want, args.Dir)
	WriteString(&want, args.Name)
	assert.Equal(t, want.Bytes(), got)

	var back struct {
		Dir  []byte
		Name string
	}
	require.NoError(t, Unmarshal(bytes.NewReader(got), &back))
	assert.Equal(t, args.Dir, back.Dir)
	assert.Equal(t, args.Name, back.Name)
}
