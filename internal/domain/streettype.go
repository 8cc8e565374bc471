package domain

import "strings"

// streetTypeAbbreviations maps lowercase street types, spelled out or already
// abbreviated, to the abbreviation the 311 address picker uses.
var streetTypeAbbreviations = map[string]string{
	"avenue": "Ave", "ave": "Ave", "av": "Ave",
	"street": "St", "st": "St",
	"market": "Mkt", "mkt": "Mkt",
	"road": "Rd", "rd": "Rd",
	"drive": "Dr", "dr": "Dr",
	"place": "Pl", "pl": "Pl",
	"court": "Ct", "ct": "Ct",
	"parkway": "Pkwy", "pkwy": "Pkwy",
	"expressway": "Expwy", "expwy": "Expwy",
	"highway": "Hwy", "hwy": "Hwy",
	"circle": "Cir", "cir": "Cir",
	"terrace": "Ter", "ter": "Ter",
	"boulevard": "Blvd", "blvd": "Blvd",
	"way": "Way", "wy": "Way",
	"square": "Sq", "sq": "Sq",
	"lane": "Ln", "ln": "Ln",
	"alley": "Aly", "aly": "Aly",
	"bypass": "Byp", "byp": "Byp",
	"trail": "Trl", "trl": "Trl",
	"row": "Row",
	"manor": "Mnr", "mnr": "Mnr",
	"crescent": "Cres", "cres": "Cres",
	"bridge": "Brg", "brg": "Brg",
	"green": "Grn", "grn": "Grn",
	"path": "Pth", "pth": "Pth",
	"cove": "Cv", "cv": "Cv",
	"haven": "Hvn", "hvn": "Hvn",
	"field": "Fld", "fld": "Fld",
	"isle": "Isle",
	"route": "Rte", "rte": "Rte",
}

// AbbreviateStreetType returns the canonical abbreviation for a street type.
// Unknown types are truncated to their first two characters.
func AbbreviateStreetType(streetType string) string {
	if abbr, ok := streetTypeAbbreviations[strings.ToLower(streetType)]; ok {
		return abbr
	}
	runes := []rune(streetType)
	if len(runes) <= 2 {
		return streetType
	}
	return string(runes[:2])
}
