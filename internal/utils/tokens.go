package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// GenerateSecureToken creates a cryptographically secure random token.
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// orgCodeAlphabet avoids ambiguous characters (0/O, 1/I) since the code is
// read aloud and typed onto certificates.
const orgCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrgCode generates the per-attempt organization display token. It is a
// display token, not a credential.
func NewOrgCode() (string, error) {
	var sb strings.Builder
	sb.WriteString("ORG-")
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(orgCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate organization code: %w", err)
		}
		sb.WriteByte(orgCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
