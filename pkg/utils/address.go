package utils

import (
	"fmt"
	"strings"
)

// base58Alphabet is the Bitcoin/Solana base58 alphabet (no 0, O, I, l).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// NormalizeAddress trims a Solana token address and checks that it looks
// like a base58 public key (32 to 44 characters).
func NormalizeAddress(address string) (string, error) {
	a := strings.TrimSpace(address)
	if a == "" {
		return "", fmt.Errorf("address is empty")
	}
	if len(a) < 32 || len(a) > 44 {
		return "", fmt.Errorf("address %q: length %d outside 32..44", a, len(a))
	}
	for i, c := range a {
		if !strings.ContainsRune(base58Alphabet, c) {
			return "", fmt.Errorf("address %q: invalid base58 character %q at %d", a, c, i)
		}
	}
	return a, nil
}
