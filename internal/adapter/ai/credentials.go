// Package ai implements the batch scoring orchestrator: it drives
// articles through a rate-limited, multi-credential, multi-endpoint
// model service and always resolves to a score, falling back to a
// sentinel default when every attempt is exhausted.
package ai

// CredentialPool is an ordered list of interchangeable API keys with a
// current-index pointer. Membership is fixed for the lifetime of the
// pool; only the pointer moves.
type CredentialPool struct {
	keys    []string
	current int
}

// NewCredentialPool builds a pool over the given keys in order.
func NewCredentialPool(keys []string) *CredentialPool {
	return &CredentialPool{keys: keys}
}

// Len returns the number of credentials in the pool.
func (p *CredentialPool) Len() int { return len(p.keys) }

// Empty reports whether the pool holds no credentials.
func (p *CredentialPool) Empty() bool { return len(p.keys) == 0 }

// Index returns the 0-based index of the current credential.
func (p *CredentialPool) Index() int { return p.current }

// Current returns the current credential, or "" for an empty pool.
func (p *CredentialPool) Current() string {
	if p.Empty() {
		return ""
	}
	return p.keys[p.current]
}

// Rotate advances the pointer to the next credential, wrapping
// circularly. It is a no-op returning false when the pool has one or
// zero credentials.
func (p *CredentialPool) Rotate() bool {
	if len(p.keys) <= 1 {
		return false
	}
	p.current = (p.current + 1) % len(p.keys)
	return true
}
