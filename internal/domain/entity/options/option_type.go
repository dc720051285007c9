package options

import "strings"

// OptionType is the right carried by a contract.
type OptionType string

const (
	OptionTypeCall    OptionType = "CALL"
	OptionTypePut     OptionType = "PUT"
	OptionTypeUnknown OptionType = ""
)

// ParseOptionType accepts CALL/PUT in any case, including the C/P shorthand
// used by some feeds. Anything else maps to OptionTypeUnknown.
func ParseOptionType(value string) OptionType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "CALL", "C":
		return OptionTypeCall
	case "PUT", "P":
		return OptionTypePut
	default:
		return OptionTypeUnknown
	}
}

func (t OptionType) String() string {
	return string(t)
}

// Valid reports whether t is CALL or PUT.
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}
