// Package domain models Chicago 311 tree-planting requests and the rules
// that decide whether a request may be submitted.
//
// # Addresses
//
// Two address shapes reach the service:
//
//	Canonical:  "1234 N Western Ave"
//	Geocoded:   "1234 North Western Avenue, Chicago, IL, USA"
//
// The canonical form is what the 311 address picker accepts and what is
// stored in tree_requests.street_address. Geocoded strings come from map
// clicks and autocomplete on the front-end; [NormalizeAddress] turns them
// into canonical form. Only three city suffixes are recognized:
//
//	"Chicago, IL"
//	"Chicago, IL, USA"
//	"Chicago, Illinois, USA"
//
// Anything else is rejected with [KindNotInChicago].
//
// # Validation
//
// [ValidateRequest] applies its rules in a fixed order and reports only the
// first failure:
//
//  1. address present
//  2. tree count within 1..10 (when given)
//  3. location text at most 50 characters (when given)
//  4. address made of letters, digits and whitespace only
//  5. address shaped like "<1-5 digits> <N|S|E|W> <name> <type>", or the
//     "<digits> N Broadway" exception, which has no street type
//
// # Street types
//
// Abbreviations follow the USPS suffix table for the types that occur in
// Chicago. Lookup is case-insensitive and idempotent ("Avenue" and "ave"
// both yield "Ave"). Unknown types fall back to their first two characters,
// so "Lane" would become "La" if it were not in the table.
//
// # Duplicates
//
// Two requests are duplicates when their canonical street addresses are
// byte-for-byte equal. "1234 N Western Ave" and "1234 North Western Avenue"
// only collide after normalization.
package domain
