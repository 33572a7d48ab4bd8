package utils

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"math/big"
	"strconv"
)

// NewRecoveryCode returns a 5-digit decimal code, uniform over 10000–99999.
func NewRecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+10000, 10), nil
}

// NewVerificationCode returns 6 hex characters from 3 random bytes.
func NewVerificationCode() (string, error) {
	b := make([]byte, 3)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
