package ai

// EndpointCatalog is the fixed, ordered list of interchangeable model
// endpoints, most preferred first. Cheap, high-quota models lead so a
// fresh credential always starts from the best cost/quota tradeoff.
type EndpointCatalog struct {
	models []string
}

// DefaultEndpoints returns the free-tier catalog. Gemini models first,
// then the Gemma family with its far larger daily quotas.
func DefaultEndpoints() EndpointCatalog {
	return EndpointCatalog{models: []string{
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-2.5-pro",
		"gemini-3-flash-preview",
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemma-3-27b-it",
		"gemma-3-12b-it",
		"gemma-3-4b-it",
		"gemma-3n-e4b-it",
		"gemma-3n-e2b-it",
		"gemma-3-1b-it",
	}}
}

// NewEndpointCatalog builds a catalog from an explicit ordered list.
func NewEndpointCatalog(models []string) EndpointCatalog {
	return EndpointCatalog{models: models}
}

// Len returns the number of endpoints.
func (c EndpointCatalog) Len() int { return len(c.models) }

// At returns the endpoint name at preference rank i.
func (c EndpointCatalog) At(i int) string { return c.models[i] }

// attemptAt decomposes a linear attempt counter into the
// (credential, endpoint) pair it addresses. Endpoints are the inner
// loop: all endpoints under credential 0 are exhausted before
// credential 1 is touched.
func (c EndpointCatalog) attemptAt(counter int) (credential, endpoint int) {
	return counter / c.Len(), counter % c.Len()
}
