// Package monitor checks payloads against JSON schema contracts before they
// leave the service.
package monitor

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/order_request.json
var orderRequestSchema []byte

// ContractMonitor validates payloads against a compiled JSON schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitorFromBytes creates a ContractMonitor from an in-memory schema.
func NewContractMonitorFromBytes(schema []byte) (*ContractMonitor, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("error loading or compiling schema: %w", err)
	}
	return &ContractMonitor{schema: compiled}, nil
}

// NewOrderRequestMonitor validates processor order creation payloads.
func NewOrderRequestMonitor() (*ContractMonitor, error) {
	return NewContractMonitorFromBytes(orderRequestSchema)
}

// Validate validates the given JSON body against the schema.
// It returns true if valid, or false and a list of validation errors if invalid.
func (cm *ContractMonitor) Validate(body []byte) (bool, []string, error) {
	return cm.validate(gojsonschema.NewBytesLoader(body))
}

// ValidateValue validates v as it will be sent on the wire.
func (cm *ContractMonitor) ValidateValue(v any) (bool, []string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return false, nil, fmt.Errorf("error encoding payload: %w", err)
	}
	return cm.Validate(body)
}

func (cm *ContractMonitor) validate(doc gojsonschema.JSONLoader) (bool, []string, error) {
	result, err := cm.schema.Validate(doc)
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, errors, nil
}

// FormatErrors formats a slice of validation error strings into a single string.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
