package aptos

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const addressHexLen = 64

// NormalizeAddress returns the long form of an account address: 0x followed by
// 64 lowercase hex characters. Short forms such as 0x1 are left-padded.
func NormalizeAddress(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return "", fmt.Errorf("empty address")
	}
	if len(s) > addressHexLen {
		return "", fmt.Errorf("address %q longer than 32 bytes", raw)
	}
	if _, err := hex.DecodeString(padHex(s)); err != nil {
		return "", fmt.Errorf("invalid hex address %q", raw)
	}
	return "0x" + strings.Repeat("0", addressHexLen-len(s)) + s, nil
}

func IsAddress(raw string) bool {
	_, err := NormalizeAddress(raw)
	return err == nil
}

// SameAddress compares two addresses regardless of padding and case.
func SameAddress(a, b string) bool {
	na, err := NormalizeAddress(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeAddress(b)
	if err != nil {
		return false
	}
	return na == nb
}

func padHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}
