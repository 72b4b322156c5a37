// Package ntlm implements the client side of NTLM authentication [MS-NLMP]
// as used by HTTP servers that answer with "WWW-Authenticate: NTLM".
//
// The handshake is three messages: the client sends NEGOTIATE (type 1), the
// server answers with CHALLENGE (type 2), and the client proves knowledge of
// the password with an NTLMv2 AUTHENTICATE (type 3). The package also
// builds challenges and verifies authenticate messages so tests can run a
// server end of the exchange.
package ntlm

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// MessageType identifies the three messages in the NTLM handshake.
// [MS-NLMP] Section 2.2.1
type MessageType uint32

const (
	Negotiate    MessageType = 1
	Challenge    MessageType = 2
	Authenticate MessageType = 3
)

// Signature starts every NTLM message.
var Signature = []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

const (
	signatureOffset   = 0
	messageTypeOffset = 8
	headerSize        = 12

	negotiateSize = 32 // no version field

	challengeBaseSize = 56
	authBaseSize      = 64 // no version, no MIC
)

// NegotiateFlag controls authentication behavior and capabilities.
// [MS-NLMP] Section 2.2.2.5
type NegotiateFlag uint32

const (
	FlagUnicode             NegotiateFlag = 0x00000001
	FlagOEM                 NegotiateFlag = 0x00000002
	FlagRequestTarget       NegotiateFlag = 0x00000004
	FlagSign                NegotiateFlag = 0x00000010
	FlagSeal                NegotiateFlag = 0x00000020
	FlagNTLM                NegotiateFlag = 0x00000200
	FlagAnonymous           NegotiateFlag = 0x00000800
	FlagDomainSupplied      NegotiateFlag = 0x00001000
	FlagWorkstationSupplied NegotiateFlag = 0x00002000
	FlagAlwaysSign          NegotiateFlag = 0x00008000
	FlagTargetTypeDomain    NegotiateFlag = 0x00010000
	FlagTargetTypeServer    NegotiateFlag = 0x00020000
	FlagExtendedSecurity    NegotiateFlag = 0x00080000
	FlagTargetInfo          NegotiateFlag = 0x00800000
	FlagVersion             NegotiateFlag = 0x02000000
	Flag128                 NegotiateFlag = 0x20000000
	FlagKeyExchange         NegotiateFlag = 0x40000000
	Flag56                  NegotiateFlag = 0x80000000
)

// clientFlags are offered in NEGOTIATE and kept in AUTHENTICATE when the
// server echoes them.
const clientFlags = FlagUnicode | FlagOEM | FlagRequestTarget | FlagNTLM |
	FlagAlwaysSign | FlagExtendedSecurity | FlagTargetInfo | Flag128 | Flag56

// AvID represents AV_PAIR attribute IDs in the TargetInfo field.
// [MS-NLMP] Section 2.2.2.1
type AvID uint16

const (
	AvEOL             AvID = 0x0000
	AvNbComputerName  AvID = 0x0001
	AvNbDomainName    AvID = 0x0002
	AvDNSComputerName AvID = 0x0003
	AvDNSDomainName   AvID = 0x0004
	AvTimestamp       AvID = 0x0007
)

// IsValid checks if the buffer starts with the NTLMSSP signature.
func IsValid(buf []byte) bool {
	if len(buf) < headerSize {
		return false
	}
	return bytes.Equal(buf[signatureOffset:signatureOffset+8], Signature)
}

// GetMessageType returns the message type, or 0 for a short buffer.
func GetMessageType(buf []byte) MessageType {
	if len(buf) < headerSize {
		return 0
	}
	return MessageType(binary.LittleEndian.Uint32(buf[messageTypeOffset : messageTypeOffset+4]))
}

func checkHeader(buf []byte, minSize int, want MessageType) error {
	if len(buf) < minSize {
		return ErrMessageTooShort
	}
	if !IsValid(buf) {
		return ErrInvalidSignature
	}
	if GetMessageType(buf) != want {
		return ErrWrongMessageType
	}
	return nil
}

func writeHeader(msg []byte, t MessageType) {
	copy(msg[signatureOffset:], Signature)
	binary.LittleEndian.PutUint32(msg[messageTypeOffset:], uint32(t))
}

// writeField writes a (len, maxlen, offset) security buffer descriptor at
// pos and copies data to offset.
func writeField(msg []byte, pos int, offset int, data []byte) {
	binary.LittleEndian.PutUint16(msg[pos:], uint16(len(data)))
	binary.LittleEndian.PutUint16(msg[pos+2:], uint16(len(data)))
	binary.LittleEndian.PutUint32(msg[pos+4:], uint32(offset))
	copy(msg[offset:], data)
}

// readField returns the payload referenced by the descriptor at pos, or nil
// if it points outside buf.
func readField(buf []byte, pos int) []byte {
	n := int(binary.LittleEndian.Uint16(buf[pos:]))
	off := int(binary.LittleEndian.Uint32(buf[pos+4:]))
	if n == 0 || off+n > len(buf) {
		return nil
	}
	out := make([]byte, n)
	copy(out, buf[off:off+n])
	return out
}

func encodeString(s string, unicode bool) []byte {
	if !unicode {
		return []byte(s)
	}
	u := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(u))
	for i, c := range u {
		binary.LittleEndian.PutUint16(out[2*i:], c)
	}
	return out
}

func decodeString(buf []byte, unicode bool) string {
	if !unicode {
		return string(buf)
	}
	u := make([]uint16, len(buf)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(buf[2*i:])
	}
	return string(utf16.Decode(u))
}

// Error is the error type returned for malformed messages.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMessageTooShort  Error = "ntlm: message too short"
	ErrInvalidSignature Error = "ntlm: invalid signature"
	ErrWrongMessageType Error = "ntlm: wrong message type"
	ErrBadResponse      Error = "ntlm: challenge response does not match"
)
