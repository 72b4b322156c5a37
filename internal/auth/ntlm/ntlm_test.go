package ntlm

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Values from [MS-NLMP] Section 4.2.
var (
	vecServerChallenge = [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	vecClientChallenge = []byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
)

func vecTargetInfo() []byte {
	pair := func(id AvID, v string) []byte {
		b := encodeString(v, true)
		out := make([]byte, 4, 4+len(b))
		binary.LittleEndian.PutUint16(out[0:2], uint16(id))
		binary.LittleEndian.PutUint16(out[2:4], uint16(len(b)))
		return append(out, b...)
	}
	info := append(pair(AvNbDomainName, "Domain"), pair(AvNbComputerName, "Server")...)
	return append(info, 0, 0, 0, 0)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestKeyDerivation(t *testing.T) {
	t.Run("NTOWFv1", func(t *testing.T) {
		assert.Equal(t, mustHex(t, "a4f49c406510bdcab6824ee7c30fd852"), NTOWFv1("Password"))
	})
	t.Run("NTOWFv2", func(t *testing.T) {
		assert.Equal(t, mustHex(t, "0c868a403bfd7a93a3001ef22ef02e3f"), NTOWFv2("Password", "User", "Domain"))
	})
	t.Run("UsernameIsCaseInsensitive", func(t *testing.T) {
		assert.Equal(t, NTOWFv2("Password", "User", "Domain"), NTOWFv2("Password", "USER", "Domain"))
	})
}

func TestChallengeResponses(t *testing.T) {
	key := NTOWFv2("Password", "User", "Domain")

	t.Run("LMv2", func(t *testing.T) {
		lm := lmChallengeResponse(key, vecServerChallenge[:], vecClientChallenge)
		assert.Equal(t, mustHex(t, "86c35097ac9cec102554764a57cccc19aaaaaaaaaaaaaaaa"), lm)
	})
	t.Run("NTProofStr", func(t *testing.T) {
		nt := ntChallengeResponse(key, vecServerChallenge[:], vecClientChallenge, make([]byte, 8), vecTargetInfo())
		assert.Equal(t, mustHex(t, "68cd0ab851e51c96aabc927bebef6a1c"), nt[:16])
		assert.Equal(t, []byte{0x01, 0x01}, nt[16:18])
	})
}

func TestSplitUsername(t *testing.T) {
	tests := []struct {
		in, user, domain string
	}{
		{"alice", "alice", ""},
		{`CORP\alice`, "alice", "CORP"},
		{"alice@corp.example", "alice", "corp.example"},
		{`\alice`, "alice", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, d := SplitUsername(tt.in)
			assert.Equal(t, tt.user, u)
			assert.Equal(t, tt.domain, d)
		})
	}
}

func TestNegotiate(t *testing.T) {
	msg := BuildNegotiate()
	require.Len(t, msg, negotiateSize)
	assert.True(t, IsValid(msg))
	assert.Equal(t, Negotiate, GetMessageType(msg))

	flags := NegotiateFlag(binary.LittleEndian.Uint32(msg[12:16]))
	assert.NotZero(t, flags&FlagUnicode)
	assert.NotZero(t, flags&FlagNTLM)
	assert.NotZero(t, flags&FlagExtendedSecurity)
}

func TestParseChallenge(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		msg := BuildChallenge(vecServerChallenge, "SERVER")
		chal, err := ParseChallenge(msg)
		require.NoError(t, err)
		assert.Equal(t, vecServerChallenge, chal.ServerChallenge)
		assert.Equal(t, "SERVER", chal.TargetName)
		assert.Equal(t, BuildTargetInfo("SERVER"), chal.TargetInfo)
		assert.NotZero(t, chal.Flags&FlagUnicode)
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := ParseChallenge([]byte("NTLMSSP"))
		assert.ErrorIs(t, err, ErrMessageTooShort)

		bad := BuildChallenge(vecServerChallenge, "SERVER")
		bad[0] = 'X'
		_, err = ParseChallenge(bad)
		assert.ErrorIs(t, err, ErrInvalidSignature)

		neg := append(BuildNegotiate(), make([]byte, 32)...)
		_, err = ParseChallenge(neg)
		assert.ErrorIs(t, err, ErrWrongMessageType)
	})

	t.Run("FieldOutOfRange", func(t *testing.T) {
		msg := BuildChallenge(vecServerChallenge, "SERVER")
		binary.LittleEndian.PutUint32(msg[44:48], 0xFFFF)
		chal, err := ParseChallenge(msg)
		require.NoError(t, err)
		assert.Nil(t, chal.TargetInfo)
	})
}

func TestAuthenticate(t *testing.T) {
	chal, err := ParseChallenge(BuildChallenge(vecServerChallenge, "SERVER"))
	require.NoError(t, err)

	t.Run("VerifiesWithCorrectPassword", func(t *testing.T) {
		msg, err := BuildAuthenticate(chal, Credentials{Username: "alice", Password: "s3cret", Domain: "CORP", Workstation: "WS"})
		require.NoError(t, err)

		auth, err := ParseAuthenticate(msg)
		require.NoError(t, err)
		assert.Equal(t, "alice", auth.Username)
		assert.Equal(t, "CORP", auth.Domain)
		assert.Equal(t, "WS", auth.Workstation)
		assert.Len(t, auth.LmChallengeResponse, 24)
		assert.NoError(t, auth.Verify(vecServerChallenge, "s3cret"))
		assert.ErrorIs(t, auth.Verify(vecServerChallenge, "wrong"), ErrBadResponse)
	})

	t.Run("DomainFromLogin", func(t *testing.T) {
		msg, err := BuildAuthenticate(chal, Credentials{Username: `CORP\bob`, Password: "pw"})
		require.NoError(t, err)
		auth, err := ParseAuthenticate(msg)
		require.NoError(t, err)
		assert.Equal(t, "bob", auth.Username)
		assert.Equal(t, "CORP", auth.Domain)
		assert.NoError(t, auth.Verify(vecServerChallenge, "pw"))
	})

	t.Run("ServerTimestampZeroesLM", func(t *testing.T) {
		ts := make([]byte, 12)
		binary.LittleEndian.PutUint16(ts[0:2], uint16(AvTimestamp))
		binary.LittleEndian.PutUint16(ts[2:4], 8)
		copy(ts[4:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
		c := *chal
		c.TargetInfo = append(ts, chal.TargetInfo...)

		msg := buildAuthenticate(&c, Credentials{Username: "u", Password: "p"}, vecClientChallenge, make([]byte, 8))
		auth, err := ParseAuthenticate(msg)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, 24), auth.LmChallengeResponse)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, auth.NtChallengeResponse[24:32])
		assert.NoError(t, auth.Verify(vecServerChallenge, "p"))
	})

	t.Run("NilChallenge", func(t *testing.T) {
		_, err := BuildAuthenticate(nil, Credentials{})
		assert.Error(t, err)
	})

	t.Run("ParseRejectsShortBuffer", func(t *testing.T) {
		_, err := ParseAuthenticate(BuildNegotiate())
		assert.ErrorIs(t, err, ErrMessageTooShort)
	})
}
