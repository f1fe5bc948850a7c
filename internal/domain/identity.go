package domain

// IdentityResponse is the provider's identity match result persisted in the
// ownership response snapshot and returned to the client as prefill data
// (unless manual entry is required).
type IdentityResponse struct {
	Verified            bool   `json:"verified" dynamodbav:"verified"`
	ManualEntryRequired bool   `json:"manual_entry_required" dynamodbav:"manual_entry_required"`
	FirstName           string `json:"first_name,omitempty" dynamodbav:"first_name"`
	LastName            string `json:"last_name,omitempty" dynamodbav:"last_name"`
	DOB                 string `json:"dob,omitempty" dynamodbav:"dob"`
	Last4               string `json:"last4,omitempty" dynamodbav:"last4"`
	Address             string `json:"address,omitempty" dynamodbav:"address"`
	ExtendedAddress     string `json:"extended_address,omitempty" dynamodbav:"extended_address"`
	City                string `json:"city,omitempty" dynamodbav:"city"`
	Region              string `json:"region,omitempty" dynamodbav:"region"`
	PostalCode          string `json:"postal_code,omitempty" dynamodbav:"postal_code"`
}

// IdentityProfile is the full PII profile the user submits for the ownership
// confirmation round-trip.
type IdentityProfile struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	DOB             string `json:"dob"`
	Last4           string `json:"last4"`
	Address         string `json:"address" validate:"required"`
	ExtendedAddress string `json:"extended_address"`
	City            string `json:"city" validate:"required"`
	Region          string `json:"region" validate:"required"`
	PostalCode      string `json:"postal_code" validate:"required"`
}
