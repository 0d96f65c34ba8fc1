package types

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// KeyError describes why a composite key could not be parsed.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

// TransactionKey is the parsed form of "country|buyerName|buyerVat".
type TransactionKey struct {
	Country   string
	BuyerName string
	BuyerVAT  string
}

// ParseTransactionKey splits a Form 349 key. Exactly three non-empty buyer
// parts are required; the country part may be empty.
func ParseTransactionKey(key string) (TransactionKey, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 3 {
		return TransactionKey{}, &KeyError{Key: key, Reason: fmt.Sprintf("expected 3 parts, got %d", len(parts))}
	}
	k := TransactionKey{Country: parts[0], BuyerName: parts[1], BuyerVAT: parts[2]}
	if k.BuyerName == "" {
		return TransactionKey{}, &KeyError{Key: key, Reason: "empty buyer name"}
	}
	if k.BuyerVAT == "" {
		return TransactionKey{}, &KeyError{Key: key, Reason: "empty buyer VAT"}
	}
	return k, nil
}

// ossKeyPattern matches "ES|FR - 20.00%".
var ossKeyPattern = regexp.MustCompile(`^([A-Z]{2})\|([A-Z]{2})\s*-\s*([\d.]+)%`)

// standardRateCodes are the EU standard VAT rates in 4-digit fixed point.
var standardRateCodes = map[int]bool{
	1900: true, 2000: true, 2100: true, 2200: true, 2300: true, 2400: true, 2500: true,
}

// OssKey is the parsed form of an OSS/IOSS key.
type OssKey struct {
	Origin      string
	Destination string

	// RateCode is the percentage times 100, e.g. 20.00% -> 2000.
	RateCode int
}

// ParseOssKey parses "<origin>|<destination> - <rate>%".
func ParseOssKey(key string) (OssKey, error) {
	m := ossKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return OssKey{}, &KeyError{Key: key, Reason: "does not match ORIGIN|DEST - RATE%"}
	}
	rate, err := decimal.NewFromString(m[3])
	if err != nil {
		return OssKey{}, &KeyError{Key: key, Reason: fmt.Sprintf("rate %q is not a number", m[3])}
	}
	if rate.Exponent() < -2 && !rate.Equal(rate.Round(2)) {
		return OssKey{}, &KeyError{Key: key, Reason: fmt.Sprintf("rate %q has more than two decimals", m[3])}
	}
	code := rate.Mul(hundred).IntPart()
	if code > 9999 {
		return OssKey{}, &KeyError{Key: key, Reason: fmt.Sprintf("rate %q out of range", m[3])}
	}
	return OssKey{Origin: m[1], Destination: m[2], RateCode: int(code)}, nil
}

// RateCodeString returns the rate code as 4 digits, e.g. "0550".
func (k OssKey) RateCodeString() string {
	return fmt.Sprintf("%04d", k.RateCode)
}

// RateType is "S" for a known standard EU rate and "R" otherwise.
func (k OssKey) RateType() string {
	if standardRateCodes[k.RateCode] {
		return "S"
	}
	return "R"
}
