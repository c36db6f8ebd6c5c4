package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex returns nBytes of crypto randomness as a hex string. Used for
// per-run identifiers like build log names.
func RandomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
