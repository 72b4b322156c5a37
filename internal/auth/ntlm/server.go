package ntlm

import (
	"crypto/hmac"
	"encoding/binary"
)

// BuildChallenge builds a type 2 message carrying serverChallenge and a
// minimal target info for targetName.
func BuildChallenge(serverChallenge [8]byte, targetName string) []byte {
	name := encodeString(targetName, true)
	info := BuildTargetInfo(targetName)

	msg := make([]byte, challengeBaseSize+len(name)+len(info))
	writeHeader(msg, Challenge)

	flags := FlagUnicode | FlagRequestTarget | FlagNTLM | FlagAlwaysSign |
		FlagTargetTypeServer | FlagExtendedSecurity | FlagTargetInfo | Flag128 | Flag56
	writeField(msg, 12, challengeBaseSize, name)
	binary.LittleEndian.PutUint32(msg[20:24], uint32(flags))
	copy(msg[24:32], serverChallenge[:])
	writeField(msg, 40, challengeBaseSize+len(name), info)
	return msg
}

// BuildTargetInfo encodes NetBIOS computer and domain names followed by
// MsvAvEOL.
func BuildTargetInfo(name string) []byte {
	v := encodeString(name, true)
	var out []byte
	for _, id := range []AvID{AvNbDomainName, AvNbComputerName} {
		pair := make([]byte, 4+len(v))
		binary.LittleEndian.PutUint16(pair[0:2], uint16(id))
		binary.LittleEndian.PutUint16(pair[2:4], uint16(len(v)))
		copy(pair[4:], v)
		out = append(out, pair...)
	}
	return append(out, 0, 0, 0, 0)
}

// AuthenticateMessage is the parsed type 3 message.
type AuthenticateMessage struct {
	LmChallengeResponse []byte
	NtChallengeResponse []byte
	Domain              string
	Username            string
	Workstation         string
	Flags               NegotiateFlag
}

// ParseAuthenticate parses a type 3 message.
// [MS-NLMP] Section 2.2.1.3
func ParseAuthenticate(buf []byte) (*AuthenticateMessage, error) {
	if err := checkHeader(buf, authBaseSize, Authenticate); err != nil {
		return nil, err
	}
	flags := NegotiateFlag(binary.LittleEndian.Uint32(buf[60:64]))
	unicode := flags&FlagUnicode != 0
	return &AuthenticateMessage{
		LmChallengeResponse: readField(buf, 12),
		NtChallengeResponse: readField(buf, 20),
		Domain:              decodeString(readField(buf, 28), unicode),
		Username:            decodeString(readField(buf, 36), unicode),
		Workstation:         decodeString(readField(buf, 44), unicode),
		Flags:               flags,
	}, nil
}

// Verify checks an NTLMv2 response against the expected password.
func (m *AuthenticateMessage) Verify(serverChallenge [8]byte, password string) error {
	if len(m.NtChallengeResponse) < 16+28 {
		return ErrBadResponse
	}
	key := NTOWFv2(password, m.Username, m.Domain)
	proof := m.NtChallengeResponse[:16]
	want := hmacMD5(key, serverChallenge[:], m.NtChallengeResponse[16:])
	if !hmac.Equal(proof, want) {
		return ErrBadResponse
	}
	return nil
}
