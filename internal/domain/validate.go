package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// AddressFormat describes the accepted canonical address shape in error messages.
const AddressFormat = `"12345 N/S/E/W StreetName Ave/St/etc", e.g. "1 S State St"`

// validatorStreetTypes are the street-type tokens the validator accepts.
var validatorStreetTypes = []string{
	"ave", "st", "blvd", "rd", "dr", "ln", "pl", "ct", "pkwy", "expwy", "hwy",
	"cir", "ter", "way", "sq", "aly", "byp", "trl", "row", "mnr", "cres", "brg",
	"grn", "pth", "cv", "hvn", "fld", "isle", "rte",
}

var (
	// disallowedRe matches anything that is not an ASCII letter, digit or whitespace.
	disallowedRe = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

	// canonicalRe matches "<house> <dir> <name> <type>" or "<house> N Broadway".
	canonicalRe = regexp.MustCompile(`(?i)^[0-9]{1,5}\s+(?:[NSEW]\s+[a-zA-Z0-9_ ]+\s+(?:` +
		strings.Join(validatorStreetTypes, "|") + `)|N\s+Broadway)$`)
)

// ValidateRequest checks a plant request before any lookup or submission.
// Rules run in order and the first failure is returned as a *ValidationError.
func ValidateRequest(req PlantRequest) error {
	if strings.TrimSpace(req.Address) == "" {
		return newValidationError(KindInvalidAddress, "Address is required")
	}
	if req.NumTrees != 0 && (req.NumTrees < MinTrees || req.NumTrees > MaxTrees) {
		return newValidationError(KindInvalidNumberOfTrees,
			"Number of trees must be between %d and %d", MinTrees, MaxTrees)
	}
	if utf8.RuneCountInString(req.Location) > MaxLocationLength {
		return newValidationError(KindInvalidLocation,
			"Location must be at most %d characters", MaxLocationLength)
	}
	return ValidateAddress(req.Address)
}

// ValidateAddress applies the address content and format rules on their own.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return newValidationError(KindInvalidAddress, "Address is required")
	}
	if disallowedRe.MatchString(address) {
		return newValidationError(KindInvalidAddress,
			"Address must contain only letters, numbers, and spaces")
	}
	if !canonicalRe.MatchString(strings.TrimSpace(address)) {
		return newValidationError(KindInvalidAddress,
			"Address must be in the format of %s. You sent: %s", AddressFormat, address)
	}
	return nil
}
