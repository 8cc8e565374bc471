package domain

import (
	"strings"
	"unicode"
)

// chicagoSuffixes are the city/state endings geocoders produce for Chicago.
var chicagoSuffixes = []string{
	"Chicago, IL",
	"Chicago, IL, USA",
	"Chicago, Illinois, USA",
}

// AddressComponents is a street address split into the parts 311 expects.
type AddressComponents struct {
	HouseNumber     string
	StreetDirection string
	StreetName      string
	StreetType      string
}

// String joins the non-empty components with single spaces.
func (a AddressComponents) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.HouseNumber, a.StreetDirection, a.StreetName, a.StreetType} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// IsGeocoded reports whether address looks like a geocoder-formatted string
// ("<street>, <city>, ...") rather than a bare canonical address.
func IsGeocoded(address string) bool {
	return strings.Contains(address, ",")
}

// InChicago reports whether a geocoded address ends with a recognized Chicago suffix.
func InChicago(address string) bool {
	address = strings.TrimSpace(address)
	for _, suffix := range chicagoSuffixes {
		if strings.HasSuffix(address, suffix) {
			return true
		}
	}
	return false
}

// NormalizeAddress converts a geocoded Chicago address into canonical form,
// e.g. "1234 North Western Avenue, Chicago, IL" -> "1234 N Western Ave".
func NormalizeAddress(address string) (string, error) {
	c, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ParseAddress splits a geocoded Chicago address into its components.
func ParseAddress(address string) (AddressComponents, error) {
	if !InChicago(address) {
		return AddressComponents{}, newValidationError(KindNotInChicago, "Address must be in Chicago. You sent: %s", address)
	}
	street, _, _ := strings.Cut(address, ",")
	return parseStreet(tokenize(street))
}

// tokenize splits a street line into whitespace-separated tokens.
func tokenize(street string) []string {
	return strings.FieldsFunc(street, unicode.IsSpace)
}

type parseState int

const (
	stateHouse parseState = iota
	stateDirection
	stateName
	stateType
	stateDone
)

// parseStreet walks the tokens as house number, direction, name words and a
// trailing street type. With exactly three tokens there is no room for both
// a name and a type, so the last token is kept verbatim as the name
// ("1234 N Broadway").
func parseStreet(tokens []string) (AddressComponents, error) {
	if len(tokens) < 3 {
		return AddressComponents{}, newValidationError(KindInvalidAddress,
			"Address must be in the format of %s. You sent: %s", AddressFormat, strings.Join(tokens, " "))
	}

	var (
		c     AddressComponents
		name  []string
		state = stateHouse
	)
	last := len(tokens) - 1
	for i, tok := range tokens {
		switch state {
		case stateHouse:
			c.HouseNumber = tok
			state = stateDirection
		case stateDirection:
			c.StreetDirection = strings.ToUpper(string([]rune(tok)[:1]))
			state = stateName
			if i+1 == last && len(tokens) == 3 {
				state = stateDone
				c.StreetName = tokens[last]
			}
		case stateName:
			name = append(name, tok)
			if i+1 == last {
				state = stateType
			}
		case stateType:
			c.StreetType = AbbreviateStreetType(tok)
			state = stateDone
		case stateDone:
		}
	}
	if len(name) > 0 {
		c.StreetName = strings.Join(name, " ")
	}
	return c, nil
}
