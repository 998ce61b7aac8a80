package servicedef

const (
	CapabilityServerSide          = "server-side"
	CapabilityStronglyTyped       = "strongly-typed"
	CapabilityAllFlagsWithReasons = "all-flags-with-reasons"
	CapabilitySecureModeHash      = "secure-mode-hash"
	CapabilityServiceEndpoints    = "service-endpoints"
	CapabilityBigSegments         = "big-segments"
)

// StatusRep is the response body for GET /, describing this test service to the contract-test
// harness.
type StatusRep struct {
	Name          string   `json:"name"`
	Capabilities  []string `json:"capabilities"`
	ClientVersion string   `json:"clientVersion"`
}

// CreateInstanceParams is the request body for POST /, describing the SDK configuration the
// harness wants a new client instance created with.
type CreateInstanceParams struct {
	Configuration SDKConfigParams `json:"configuration"`
	Tag           string          `json:"tag"`
}
