package gateway

import "strings"

// Match outcomes derived from an AVS code. An empty string means the code
// carries no information about that part of the address.
const (
	MatchYes         = "Y"
	MatchNo          = "N"
	MatchUnsupported = "X"
)

var avsMessages = map[string]string{
	"A": "Street address matches, but postal code does not match.",
	"B": "Street address matches, but postal code not verified.",
	"C": "Street address and postal code do not match.",
	"D": "Street address and postal code match.",
	"E": "AVS data is invalid or AVS is not allowed for this card type.",
	"F": "Card member's name does not match, but billing postal code matches.",
	"G": "Non-U.S. issuing bank does not support AVS.",
	"H": "Card member's name does not match. Street address and postal code match.",
	"I": "Address not verified.",
	"J": "Card member's name, billing address, and postal code match. Shipping information verified and chargeback protection guaranteed through the Fraud Protection Program.",
	"K": "Card member's name matches but billing address and billing postal code do not match.",
	"L": "Card member's name and billing postal code match, but billing address does not match.",
	"M": "Street address and postal code match.",
	"N": "Street address and postal code do not match. For American Express: Card member's name, street address and postal code do not match.",
	"O": "Card member's name and billing address match, but billing postal code does not match.",
	"P": "Postal code matches, but street address not verified.",
	"Q": "Card member's name, billing address, and postal code match. Shipping information verified but chargeback protection not guaranteed.",
	"R": "System unavailable.",
	"S": "U.S.-issuing bank does not support AVS.",
	"T": "Card member's name does not match, but street address matches.",
	"U": "Address information unavailable.",
	"V": "Card member's name, billing address, and billing postal code match.",
	"W": "Street address does not match, but 9-digit postal code matches.",
	"X": "Street address and 9-digit postal code match.",
	"Y": "Street address and 5-digit postal code match.",
	"Z": "Street address does not match, but 5-digit postal code matches.",
}

// Codes missing from both partitions (B E I R T U for postal, E F I P R U for
// street) map to an empty match.
var postalMatchCodes = invert(map[string]string{
	MatchYes:         "DHFJLMPQVWXYZ",
	MatchNo:          "ACKNO",
	MatchUnsupported: "GS",
})

var streetMatchCodes = invert(map[string]string{
	MatchYes:         "ABDHJMOQTVXY",
	MatchNo:          "CKLNWZ",
	MatchUnsupported: "GS",
})

func invert(partitions map[string]string) map[string]string {
	out := make(map[string]string)
	for match, codes := range partitions {
		for _, c := range codes {
			out[string(c)] = match
		}
	}
	return out
}

// AVSMessages returns the message table keyed by AVS code.
func AVSMessages() map[string]string {
	out := make(map[string]string, len(avsMessages))
	for k, v := range avsMessages {
		out[k] = v
	}
	return out
}

// AVSInput is the raw address verification data a processor may return.
// StreetMatch and PostalMatch, when set, override the table derivation.
type AVSInput struct {
	Code        string
	StreetMatch string
	PostalMatch string
}

// AVSResult is the normalized address verification outcome.
type AVSResult struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	StreetMatch string `json:"street_match"`
	PostalMatch string `json:"postal_match"`
}

// NewAVSResult derives an AVSResult from raw processor input.
func NewAVSResult(in AVSInput) AVSResult {
	var r AVSResult
	if code := strings.TrimSpace(in.Code); code != "" {
		r.Code = strings.ToUpper(code)
	}
	r.Message = avsMessages[r.Code]

	if s := strings.TrimSpace(in.StreetMatch); s != "" {
		r.StreetMatch = strings.ToUpper(s)
	} else {
		r.StreetMatch = streetMatchCodes[r.Code]
	}
	if p := strings.TrimSpace(in.PostalMatch); p != "" {
		r.PostalMatch = strings.ToUpper(p)
	} else {
		r.PostalMatch = postalMatchCodes[r.Code]
	}
	return r
}

// ToMap renders the result with nil for absent fields.
func (r AVSResult) ToMap() map[string]any {
	return map[string]any{
		"code":         nilIfEmpty(r.Code),
		"message":      nilIfEmpty(r.Message),
		"street_match": nilIfEmpty(r.StreetMatch),
		"postal_match": nilIfEmpty(r.PostalMatch),
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
