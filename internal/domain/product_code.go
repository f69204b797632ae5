package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	productCodeMinLength = 7
	productCodeMaxLength = 11
	maxCodeSequence      = 999999
	codePrefixLength     = 4
	fallbackCodePrefix   = "PROD"
)

var (
	productCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,4}-[A-Z0-9]{3,6}$`)
	codePrefixPattern  = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)
	codeSuffixPattern  = regexp.MustCompile(`^[A-Z0-9]{3,6}$`)
	nonAlphanumeric    = regexp.MustCompile(`[^A-Z0-9]`)
)

// ProductCode is a normalized SKU of the form PREFIX-SUFFIX, e.g. "ELEC-000007".
type ProductCode struct {
	value string
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NewProductCode normalizes and validates a full code. It is also used to rehydrate
// codes read from storage.
func NewProductCode(code string) (ProductCode, error) {
	normalized := normalizeCode(code)
	if len(normalized) < productCodeMinLength || len(normalized) > productCodeMaxLength {
		return ProductCode{}, fmt.Errorf("%w: product code %q must be %d-%d characters long",
			ErrInvalidFormat, code, productCodeMinLength, productCodeMaxLength)
	}
	if !productCodePattern.MatchString(normalized) {
		return ProductCode{}, fmt.Errorf("%w: product code %q must match XXX(X)-YYY(YYY)", ErrInvalidFormat, code)
	}
	return ProductCode{value: normalized}, nil
}

// ProductCodeFromParts validates prefix and suffix independently and joins them with "-".
func ProductCodeFromParts(prefix, suffix string) (ProductCode, error) {
	prefix = normalizeCode(prefix)
	suffix = normalizeCode(suffix)
	if !codePrefixPattern.MatchString(prefix) {
		return ProductCode{}, fmt.Errorf("%w: prefix %q must be 3-4 alphanumeric characters", ErrInvalidFormat, prefix)
	}
	if !codeSuffixPattern.MatchString(suffix) {
		return ProductCode{}, fmt.Errorf("%w: suffix %q must be 3-6 alphanumeric characters", ErrInvalidFormat, suffix)
	}
	return NewProductCode(prefix + "-" + suffix)
}

// GenerateProductCode derives a code from a category name and a numeric sequence:
// "electronics", 7 -> "ELEC-000007".
func GenerateProductCode(category string, sequence int) (ProductCode, error) {
	if strings.TrimSpace(category) == "" {
		return ProductCode{}, fmt.Errorf("%w: category is required to generate a product code", ErrInvalidFormat)
	}
	return codeFromSequence(CategoryCodePrefix(category), sequence)
}

func codeFromSequence(prefix string, sequence int) (ProductCode, error) {
	if sequence < 0 || sequence > maxCodeSequence {
		return ProductCode{}, fmt.Errorf("%w: sequence %d out of range 0-%d", ErrInvalidFormat, sequence, maxCodeSequence)
	}
	return ProductCodeFromParts(prefix, fmt.Sprintf("%06d", sequence))
}

// CategoryCodePrefix maps a category to its 4-character code prefix. Non-alphanumerics are
// dropped, long names truncated, short names right-padded with X. A category with no
// usable characters maps to PROD.
func CategoryCodePrefix(category string) string {
	sanitized := nonAlphanumeric.ReplaceAllString(strings.ToUpper(category), "")
	if sanitized == "" {
		return fallbackCodePrefix
	}
	if len(sanitized) >= codePrefixLength {
		return sanitized[:codePrefixLength]
	}
	return sanitized + strings.Repeat("X", codePrefixLength-len(sanitized))
}

func (c ProductCode) String() string {
	return c.value
}

func (c ProductCode) IsZero() bool {
	return c.value == ""
}

func (c ProductCode) Equals(other ProductCode) bool {
	return c.value == other.value
}

// Prefix returns the part before the dash
func (c ProductCode) Prefix() string {
	prefix, _, _ := strings.Cut(c.value, "-")
	return prefix
}

// Suffix returns the part after the dash
func (c ProductCode) Suffix() string {
	_, suffix, _ := strings.Cut(c.value, "-")
	return suffix
}

// Category returns the category prefix of the code
func (c ProductCode) Category() string {
	return c.Prefix()
}

// Sequence parses the suffix as a number. Codes with a non-numeric suffix have no sequence.
func (c ProductCode) Sequence() (int, error) {
	n, err := strconv.Atoi(c.Suffix())
	if err != nil {
		return 0, fmt.Errorf("%w: product code %q has no numeric sequence", ErrInvalidFormat, c.value)
	}
	return n, nil
}

// Next returns the code with the following sequence number
func (c ProductCode) Next() (ProductCode, error) {
	seq, err := c.Sequence()
	if err != nil {
		return ProductCode{}, err
	}
	return codeFromSequence(c.Prefix(), seq+1)
}

// Previous returns the code with the preceding sequence number; it fails at sequence 0
func (c ProductCode) Previous() (ProductCode, error) {
	seq, err := c.Sequence()
	if err != nil {
		return ProductCode{}, err
	}
	if seq == 0 {
		return ProductCode{}, fmt.Errorf("%w: product code %q has no previous sequence", ErrInvalidFormat, c.value)
	}
	return codeFromSequence(c.Prefix(), seq-1)
}

// IsSequential reports whether other shares the prefix and is exactly one step away
func (c ProductCode) IsSequential(other ProductCode) bool {
	if c.Prefix() != other.Prefix() {
		return false
	}
	a, err := c.Sequence()
	if err != nil {
		return false
	}
	b, err := other.Sequence()
	if err != nil {
		return false
	}
	return a-b == 1 || b-a == 1
}

// BelongsToCategory reports whether the code prefix matches the prefix derived from category
func (c ProductCode) BelongsToCategory(category string) bool {
	return c.Prefix() == CategoryCodePrefix(category)
}

// Matches tests the code against an arbitrary pattern
func (c ProductCode) Matches(pattern *regexp.Regexp) bool {
	return pattern.MatchString(c.value)
}
