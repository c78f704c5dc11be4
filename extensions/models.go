// Package extensions implements the extension build registry: ingestion of
// build records from the trusted publishing service and public lookups.
// Records are immutable once created; the only mutation is deletion.
package extensions

import "time"

// Extension represents one published extension build.
type Extension struct {
	ID                   string    `json:"id"`
	BuildNumber          string    `json:"buildNumber"`
	BuildDescription     string    `json:"buildDescription"`
	Author               string    `json:"author"`
	CommitID             string    `json:"commitId"`
	PackedExtensionURL   string    `json:"packedExtensionUrl"`
	UnpackedExtensionURL string    `json:"unpackedExtensionUrl"`
	CreatedAt            time.Time `json:"createdAt"`
}
