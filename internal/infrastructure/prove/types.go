package prove

// InstantLink is the result of minting a one-time SMS link. The fingerprint
// correlates the sent link with its later click event.
type InstantLink struct {
	AuthenticationURL       string `json:"AuthenticationUrl"`
	VerificationFingerprint string `json:"VerificationFingerprint"`
}

// InstantLinkResult is the click outcome for a fingerprint. PhoneMatch is a
// tri-state string ("true", "false", "indeterminate") as returned by the
// provider; only an explicit "false" counts as a failed match.
type InstantLinkResult struct {
	LinkClicked bool   `json:"LinkClicked"`
	PhoneMatch  string `json:"PhoneMatch"`
	LineType    string `json:"LineType,omitempty"`
}

// TrustResult is the phone/IP reputation score.
type TrustResult struct {
	TrustScore int `json:"TrustScore"`
}

// IdentityResult is the partial-PII identity lookup response.
type IdentityResult struct {
	Verified            bool   `json:"Verified"`
	ManualEntryRequired bool   `json:"ManualEntryRequired"`
	FirstName           string `json:"FirstName,omitempty"`
	LastName            string `json:"LastName,omitempty"`
	DOB                 string `json:"Dob,omitempty"`
	Last4               string `json:"Last4,omitempty"`
	Address             string `json:"Address,omitempty"`
	ExtendedAddress     string `json:"ExtendedAddress,omitempty"`
	City                string `json:"City,omitempty"`
	Region              string `json:"Region,omitempty"`
	PostalCode          string `json:"PostalCode,omitempty"`
}

// ConfirmResult is the full-PII identity confirmation response.
type ConfirmResult struct {
	Verified bool `json:"Verified"`
}

// ConfirmRequest is the full-PII payload for identity confirmation.
type ConfirmRequest struct {
	PhoneNumber     string `json:"PhoneNumber"`
	FirstName       string `json:"FirstName"`
	LastName        string `json:"LastName"`
	DOB             string `json:"Dob,omitempty"`
	Last4           string `json:"Last4,omitempty"`
	Address         string `json:"Address"`
	ExtendedAddress string `json:"ExtendedAddress,omitempty"`
	City            string `json:"City"`
	Region          string `json:"Region"`
	PostalCode      string `json:"PostalCode"`
}
