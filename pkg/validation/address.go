package validation

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

const addressHexLength = 40

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Mixed-case addresses must carry a valid EIP-55 checksum.
func IsAddress(s string) bool {
	if len(s) != addressHexLength+2 || !strings.HasPrefix(s, "0x") {
		return false
	}

	digits := s[2:]
	if _, err := hex.DecodeString(digits); err != nil {
		return false
	}

	lower := strings.ToLower(digits)
	if digits == lower || digits == strings.ToUpper(digits) {
		return true
	}

	return ChecksumAddress(s) == s
}

// ChecksumAddress returns the EIP-55 mixed-case form of a hex address.
// The input is assumed to be a well-formed 0x-prefixed address.
func ChecksumAddress(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, "0x"))

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	hash := hasher.Sum(nil)

	out := []byte(lower)

	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}

		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}

		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}

	return "0x" + string(out)
}
