package ntlm

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/md4"
)

// Credentials identify the user in an AUTHENTICATE message.
type Credentials struct {
	Username    string
	Password    string
	Domain      string
	Workstation string
}

// SplitUsername separates a "DOMAIN\user" or "user@domain" login into its
// user and domain parts. A plain name yields an empty domain.
func SplitUsername(login string) (user, domain string) {
	if i := strings.IndexByte(login, '\\'); i >= 0 {
		return login[i+1:], login[:i]
	}
	if i := strings.LastIndexByte(login, '@'); i >= 0 {
		return login[:i], login[i+1:]
	}
	return login, ""
}

// BuildNegotiate builds the type 1 message that opens the handshake.
// [MS-NLMP] Section 2.2.1.1
func BuildNegotiate() []byte {
	msg := make([]byte, negotiateSize)
	writeHeader(msg, Negotiate)
	binary.LittleEndian.PutUint32(msg[12:16], uint32(clientFlags))
	// DomainNameFields and WorkstationFields stay empty.
	binary.LittleEndian.PutUint32(msg[20:24], negotiateSize)
	binary.LittleEndian.PutUint32(msg[28:32], negotiateSize)
	return msg
}

// ChallengeMessage is the parsed type 2 message.
type ChallengeMessage struct {
	Flags           NegotiateFlag
	ServerChallenge [8]byte
	TargetName      string
	TargetInfo      []byte
}

// ParseChallenge parses a type 2 message.
// [MS-NLMP] Section 2.2.1.2
func ParseChallenge(buf []byte) (*ChallengeMessage, error) {
	if err := checkHeader(buf, 48, Challenge); err != nil {
		return nil, err
	}
	m := &ChallengeMessage{
		Flags: NegotiateFlag(binary.LittleEndian.Uint32(buf[20:24])),
	}
	copy(m.ServerChallenge[:], buf[24:32])
	m.TargetName = decodeString(readField(buf, 12), m.Flags&FlagUnicode != 0)
	m.TargetInfo = readField(buf, 40)
	return m, nil
}

// timestamp returns the MsvAvTimestamp value from the target info, if any.
func (m *ChallengeMessage) timestamp() ([]byte, bool) {
	info := m.TargetInfo
	for len(info) >= 4 {
		id := AvID(binary.LittleEndian.Uint16(info[0:2]))
		n := int(binary.LittleEndian.Uint16(info[2:4]))
		if id == AvEOL || 4+n > len(info) {
			break
		}
		if id == AvTimestamp && n == 8 {
			return info[4:12], true
		}
		info = info[4+n:]
	}
	return nil, false
}

// BuildAuthenticate answers a challenge with an NTLMv2 type 3 message.
// [MS-NLMP] Section 3.1.5.1.2
func BuildAuthenticate(chal *ChallengeMessage, creds Credentials) ([]byte, error) {
	if chal == nil {
		return nil, fmt.Errorf("ntlm: nil challenge")
	}
	clientChallenge := make([]byte, 8)
	if _, err := rand.Read(clientChallenge); err != nil {
		return nil, fmt.Errorf("ntlm: client challenge: %w", err)
	}
	return buildAuthenticate(chal, creds, clientChallenge, fileTime(time.Now())), nil
}

func buildAuthenticate(chal *ChallengeMessage, creds Credentials, clientChallenge, ts []byte) []byte {
	user, domain := creds.Username, creds.Domain
	if domain == "" {
		user, domain = SplitUsername(user)
	}

	key := NTOWFv2(creds.Password, user, domain)

	serverTS, hasTS := chal.timestamp()
	if hasTS {
		ts = serverTS
	}
	nt := ntChallengeResponse(key, chal.ServerChallenge[:], clientChallenge, ts, chal.TargetInfo)

	var lm []byte
	if hasTS {
		// A server that sends MsvAvTimestamp expects Z(24) in place of LMv2.
		lm = make([]byte, 24)
	} else {
		lm = lmChallengeResponse(key, chal.ServerChallenge[:], clientChallenge)
	}

	unicode := chal.Flags&FlagUnicode != 0
	flags := clientFlags & (chal.Flags | FlagNTLM)
	if unicode {
		flags &^= FlagOEM
	}

	domainB := encodeString(domain, unicode)
	userB := encodeString(user, unicode)
	wsB := encodeString(creds.Workstation, unicode)

	size := authBaseSize + len(domainB) + len(userB) + len(wsB) + len(lm) + len(nt)
	msg := make([]byte, size)
	writeHeader(msg, Authenticate)

	off := authBaseSize
	writeField(msg, 28, off, domainB)
	off += len(domainB)
	writeField(msg, 36, off, userB)
	off += len(userB)
	writeField(msg, 44, off, wsB)
	off += len(wsB)
	writeField(msg, 12, off, lm)
	off += len(lm)
	writeField(msg, 20, off, nt)
	// EncryptedRandomSessionKey stays empty: no key exchange over HTTP.
	binary.LittleEndian.PutUint32(msg[56:60], uint32(size))
	binary.LittleEndian.PutUint32(msg[60:64], uint32(flags))
	return msg
}

// NTOWFv1 is the MD4 hash of the UTF-16LE password.
func NTOWFv1(password string) []byte {
	h := md4.New()
	h.Write(encodeString(password, true))
	return h.Sum(nil)
}

// NTOWFv2 derives the NTLMv2 response key.
// [MS-NLMP] Section 3.3.2
func NTOWFv2(password, user, domain string) []byte {
	return hmacMD5(NTOWFv1(password), encodeString(strings.ToUpper(user)+domain, true))
}

func ntChallengeResponse(key, serverChallenge, clientChallenge, ts, targetInfo []byte) []byte {
	temp := make([]byte, 0, 28+len(targetInfo)+4)
	temp = append(temp, 0x01, 0x01, 0, 0, 0, 0, 0, 0)
	temp = append(temp, ts...)
	temp = append(temp, clientChallenge...)
	temp = append(temp, 0, 0, 0, 0)
	temp = append(temp, targetInfo...)
	temp = append(temp, 0, 0, 0, 0)

	proof := hmacMD5(key, serverChallenge, temp)
	return append(proof, temp...)
}

func lmChallengeResponse(key, serverChallenge, clientChallenge []byte) []byte {
	return append(hmacMD5(key, serverChallenge, clientChallenge), clientChallenge...)
}

func hmacMD5(key []byte, data ...[]byte) []byte {
	h := hmac.New(md5.New, key)
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// fileTime converts t to a little-endian Windows FILETIME.
func fileTime(t time.Time) []byte {
	v := uint64(t.UnixNano()/100) + 116444736000000000
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out
}
