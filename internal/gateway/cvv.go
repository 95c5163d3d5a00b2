package gateway

import "strings"

var cvvMessages = map[string]string{
	"D": "CVV check flagged transaction as suspicious",
	"I": "CVV failed data validation check",
	"M": "CVV matches",
	"N": "CVV does not match",
	"P": "CVV not processed",
	"S": "CVV should have been present",
	"U": "CVV request unable to be processed by issuer",
	"X": "CVV check not supported for card",
}

// CVVMessages returns the message table keyed by CVV code.
func CVVMessages() map[string]string {
	out := make(map[string]string, len(cvvMessages))
	for k, v := range cvvMessages {
		out[k] = v
	}
	return out
}

// CVVResult is the normalized card security code outcome.
type CVVResult struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewCVVResult looks up a raw CVV code. A blank code yields an empty result.
func NewCVVResult(code string) CVVResult {
	code = strings.TrimSpace(code)
	if code == "" {
		return CVVResult{}
	}
	code = strings.ToUpper(code)
	return CVVResult{Code: code, Message: cvvMessages[code]}
}

func (r CVVResult) ToMap() map[string]any {
	return map[string]any{
		"code":    nilIfEmpty(r.Code),
		"message": nilIfEmpty(r.Message),
	}
}
