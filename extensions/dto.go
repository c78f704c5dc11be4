package extensions

// CreateExtensionRequest is the ingestion payload. The secret field is
// consumed by the RequireSecret gate before validation and is never
// persisted.
type CreateExtensionRequest struct {
	BuildNumber          string `json:"buildNumber" validate:"required" example:"b-100"`
	BuildDescription     string `json:"buildDescription" validate:"required"`
	Author               string `json:"author" validate:"required"`
	CommitID             string `json:"commitId" validate:"required"`
	PackedExtensionURL   string `json:"packedExtensionUrl" validate:"required,url"`
	UnpackedExtensionURL string `json:"unpackedExtensionUrl" validate:"required,url"`
	Secret               string `json:"secret,omitempty"`
}
