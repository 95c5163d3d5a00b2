package gateway

// ResponseOptions carries the optional parts of a Response.
type ResponseOptions struct {
	Test                 bool
	Authorization        string // processor id produced or referenced by the call
	ErrorCode            string // processor debug/correlation id
	FraudReview          bool
	EMVAuthorization     string
	NetworkTransactionID string
	AVS                  AVSInput
	CVV                  string
}

// Response is the uniform result of every gateway operation.
type Response struct {
	Success              bool           `json:"success"`
	Message              string         `json:"message"`
	Params               map[string]any `json:"params,omitempty"`
	Test                 bool           `json:"test"`
	Authorization        string         `json:"authorization,omitempty"`
	ErrorCode            string         `json:"error_code,omitempty"`
	FraudReview          bool           `json:"fraud_review"`
	EMVAuthorization     string         `json:"emv_authorization,omitempty"`
	NetworkTransactionID string         `json:"network_transaction_id,omitempty"`
	AVSResult            AVSResult      `json:"avs_result"`
	CVVResult            CVVResult      `json:"cvv_result"`
}

// NewResponse builds a Response. A failed response never carries an
// authorization reference.
func NewResponse(success bool, message string, params map[string]any, opts ResponseOptions) *Response {
	if params == nil {
		params = map[string]any{}
	}
	r := &Response{
		Success:              success,
		Message:              message,
		Params:               params,
		Test:                 opts.Test,
		Authorization:        opts.Authorization,
		ErrorCode:            opts.ErrorCode,
		FraudReview:          opts.FraudReview,
		EMVAuthorization:     opts.EMVAuthorization,
		NetworkTransactionID: opts.NetworkTransactionID,
		AVSResult:            NewAVSResult(opts.AVS),
		CVVResult:            NewCVVResult(opts.CVV),
	}
	if !success {
		r.Authorization = ""
	}
	return r
}

// Succeeded is shorthand for a successful response referencing authorization.
func Succeeded(message, authorization string) *Response {
	return NewResponse(true, message, nil, ResponseOptions{Authorization: authorization})
}

// Failed is shorthand for a failed response with an optional error code.
func Failed(message, errorCode string) *Response {
	return NewResponse(false, message, nil, ResponseOptions{ErrorCode: errorCode})
}

func (r *Response) Failure() bool {
	return !r.Success
}
