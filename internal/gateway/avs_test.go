package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAVSResult(t *testing.T) {
	tests := []struct {
		name   string
		in     AVSInput
		code   string
		street string
		postal string
	}{
		{name: "FullMatch", in: AVSInput{Code: "Y"}, code: "Y", street: MatchYes, postal: MatchYes},
		{name: "LowercaseCode", in: AVSInput{Code: "y"}, code: "Y", street: MatchYes, postal: MatchYes},
		{name: "BankDoesNotSupport", in: AVSInput{Code: "G"}, code: "G", street: MatchUnsupported, postal: MatchUnsupported},
		{name: "StreetOnly", in: AVSInput{Code: "A"}, code: "A", street: MatchYes, postal: MatchNo},
		{name: "PostalOnly", in: AVSInput{Code: "Z"}, code: "Z", street: MatchNo, postal: MatchYes},
		{name: "PostalUnverified", in: AVSInput{Code: "B"}, code: "B", street: MatchYes, postal: ""},
		{name: "NothingKnown", in: AVSInput{Code: "U"}, code: "U", street: "", postal: ""},
		{name: "Blank", in: AVSInput{}, code: "", street: "", postal: ""},
		{name: "Whitespace", in: AVSInput{Code: "  "}, code: "", street: "", postal: ""},
		{name: "Overrides", in: AVSInput{Code: "N", StreetMatch: "y", PostalMatch: "x"}, code: "N", street: MatchYes, postal: MatchUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewAVSResult(tt.in)
			assert.Equal(t, tt.code, r.Code)
			assert.Equal(t, tt.street, r.StreetMatch)
			assert.Equal(t, tt.postal, r.PostalMatch)
			assert.Equal(t, avsMessages[tt.code], r.Message)
		})
	}
}

func TestAVSTablesCoverEveryLetter(t *testing.T) {
	messages := AVSMessages()
	assert.Len(t, messages, 26)
	for c := 'A'; c <= 'Z'; c++ {
		assert.NotEmpty(t, messages[string(c)], "missing message for %c", c)
	}
	// street and postal partitions are each disjoint by construction; the
	// unsupported bucket is shared.
	assert.Equal(t, MatchUnsupported, streetMatchCodes["S"])
	assert.Equal(t, MatchUnsupported, postalMatchCodes["S"])
}

func TestAVSResult_ToMap(t *testing.T) {
	assert.Equal(t, map[string]any{
		"code": nil, "message": nil, "street_match": nil, "postal_match": nil,
	}, NewAVSResult(AVSInput{}).ToMap())

	m := NewAVSResult(AVSInput{Code: "D"}).ToMap()
	assert.Equal(t, "D", m["code"])
	assert.Equal(t, "Street address and postal code match.", m["message"])
	assert.Equal(t, "Y", m["street_match"])
	assert.Equal(t, "Y", m["postal_match"])
}

func TestNewCVVResult(t *testing.T) {
	assert.Len(t, CVVMessages(), 8)

	r := NewCVVResult("m")
	assert.Equal(t, "M", r.Code)
	assert.Equal(t, "CVV matches", r.Message)

	unknown := NewCVVResult("Q")
	assert.Equal(t, "Q", unknown.Code)
	assert.Empty(t, unknown.Message)

	blank := NewCVVResult("")
	assert.Equal(t, CVVResult{}, blank)
	assert.Equal(t, map[string]any{"code": nil, "message": nil}, blank.ToMap())
}
