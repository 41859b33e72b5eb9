package identity

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

var ErrBadAddress = errors.New("invalid address")

var ss58Pre = []byte("SS58PRE")

func ss58Checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Pre)
	h.Write(data)
	return h.Sum(nil)[:2]
}

// EncodeSS58 renders a 32-byte public key for the given network prefix.
func EncodeSS58(pub []byte, prefix uint16) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("%w: public key length %d", ErrBadAddress, len(pub))
	}
	var head []byte
	switch {
	case prefix < 64:
		head = []byte{byte(prefix)}
	case prefix < 16384:
		first := byte((prefix&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(prefix>>8) | byte((prefix&0b11)<<6)
		head = []byte{first, second}
	default:
		return "", fmt.Errorf("%w: prefix %d out of range", ErrBadAddress, prefix)
	}
	body := append(head, pub...)
	return base58.Encode(append(body, ss58Checksum(body)...)), nil
}

// DecodeSS58 returns the public key and network prefix, checking the
// checksum.
func DecodeSS58(addr string) ([]byte, uint16, error) {
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) < 35 {
		return nil, 0, fmt.Errorf("%w: %q", ErrBadAddress, addr)
	}
	var prefix uint16
	headLen := 1
	if raw[0]&0b0100_0000 != 0 {
		headLen = 2
		lower := uint16(raw[0]&0b0011_1111)<<2 | uint16(raw[1]>>6)
		upper := uint16(raw[1] & 0b0011_1111)
		prefix = lower | upper<<8
	} else {
		prefix = uint16(raw[0])
	}
	if len(raw) != headLen+32+2 {
		return nil, 0, fmt.Errorf("%w: %q", ErrBadAddress, addr)
	}
	body := raw[:headLen+32]
	if !bytes.Equal(raw[headLen+32:], ss58Checksum(body)) {
		return nil, 0, fmt.Errorf("%w: bad checksum", ErrBadAddress)
	}
	return append([]byte(nil), raw[headLen:headLen+32]...), prefix, nil
}

// PublicKey accepts either SS58 or 0x-hex and returns the raw key.
func PublicKey(addr string) ([]byte, error) {
	if has0x(addr) {
		pub, err := hex.DecodeString(addr[2:])
		if err != nil || len(pub) != 32 {
			return nil, fmt.Errorf("%w: %q", ErrBadAddress, addr)
		}
		return pub, nil
	}
	pub, _, err := DecodeSS58(addr)
	return pub, err
}

// Canonical maps any accepted address form to lowercase 0x-hex of the
// public key, so one key is one principal regardless of network prefix.
func Canonical(addr string) (string, error) {
	pub, err := PublicKey(addr)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(pub), nil
}

func has0x(s string) bool {
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func strip0x(s string) string {
	if has0x(s) {
		return s[2:]
	}
	return s
}
