package models

// Addon represents a configured addon in API responses.
type Addon struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	InstallURL string       `json:"installUrl"`
	Position   int          `json:"position"`
	Protected  bool         `json:"protected"`
	Health     *AddonHealth `json:"health,omitempty"`
	CreatedAt  Timestamp    `json:"createdAt"`
	UpdatedAt  Timestamp    `json:"updatedAt"`
}

// AddonHealth is the last recorded reachability result for an addon.
type AddonHealth struct {
	Online      bool      `json:"isOnline"`
	Error       string    `json:"error,omitempty"`
	LastChecked Timestamp `json:"lastChecked"`
}

// AddonList is the response body for addon collection reads.
type AddonList struct {
	Items []Addon `json:"items"`
}

// AddonCreateRequest is the request body for installing an addon.
type AddonCreateRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	InstallURL string `json:"installUrl" validate:"required,url"`
}

// AddonUpdateRequest is the request body for updating an addon.
// Nil fields are left unchanged.
type AddonUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	InstallURL *string `json:"installUrl,omitempty"`
}

// AddonReorderRequest is the request body for reordering the addon list.
// IDs must be a full permutation of the installed addons.
type AddonReorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

// AddonProtectRequest is the request body for toggling delete protection.
type AddonProtectRequest struct {
	Protected bool `json:"protected"`
}

// AddonBulkSaveRequest replaces the whole addon collection in one call.
type AddonBulkSaveRequest struct {
	Items []AddonBulkItem `json:"items" validate:"required"`
}

// AddonBulkItem is one element of a bulk save. Items without an ID are
// treated as new installs.
type AddonBulkItem struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	InstallURL string `json:"installUrl"`
	Protected  bool   `json:"protected"`
}

// AddonCheckResponse is the response body for a collection health check.
type AddonCheckResponse struct {
	Checked int     `json:"checked"`
	Items   []Addon `json:"items"`
}

// AddonVerifyResponse is the result of a functional verification probe.
type AddonVerifyResponse struct {
	Healthy   bool   `json:"isHealthy"`
	Message   string `json:"message"`
	LatencyMS int64  `json:"latency,omitempty"`
}
