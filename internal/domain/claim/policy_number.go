package claim

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

const (
	PolicyPrefix        = "POL"
	anonymousSegment    = "ANON"
	policySuffixLength  = 8
	policySuffixEntropy = 5 // bytes, 40 bits
	maxCustomerSegment  = 16
)

// base36Alphabet is the set of characters used in policy number suffixes.
const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CustomerSegment upper-cases the customer id and keeps only [A-Z0-9].
func CustomerSegment(customerID string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(customerID) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxCustomerSegment {
				break
			}
		}
	}
	if b.Len() == 0 {
		return anonymousSegment
	}
	return b.String()
}

// EncodeBase36 renders data as a fixed-length upper-case base36 string,
// keeping the least significant digits when the value is longer than length.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var b strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		b.WriteByte(chars[i])
	}

	str := b.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// NewPolicyNumber draws one candidate from rnd. Uniqueness is the caller's job.
func NewPolicyNumber(rnd io.Reader, customerID string, now time.Time) (string, error) {
	buf := make([]byte, policySuffixEntropy)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("read policy number entropy: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s-%s",
		PolicyPrefix,
		CustomerSegment(customerID),
		now.UTC().Format("20060102"),
		EncodeBase36(buf, policySuffixLength),
	), nil
}

// ValidatePolicyNumber only checks shape; customers may bring numbers issued elsewhere.
func ValidatePolicyNumber(policyNumber string) error {
	trimmed := strings.TrimSpace(policyNumber)
	if trimmed == "" {
		return fmt.Errorf("%w: policyNumber is required", ErrValidation)
	}
	if len(trimmed) > 64 {
		return fmt.Errorf("%w: policyNumber is too long", ErrValidation)
	}
	return nil
}
