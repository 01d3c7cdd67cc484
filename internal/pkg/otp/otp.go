package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
)

// Codes are drawn uniformly from the closed range [CodeMin, CodeMax].
const (
	CodeMin = 100000
	CodeMax = 999999
)

// Generate returns a six-digit numeric code from crypto/rand.
func Generate() (string, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom draws a code using r as the entropy source.
func GenerateFrom(r io.Reader) (string, error) {
	n, err := rand.Int(r, big.NewInt(CodeMax-CodeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+CodeMin, 10), nil
}
