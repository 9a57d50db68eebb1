// internal/coordinator/identity.go
package coordinator

import (
	"fmt"
	"net/http"

	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/types"
)

// Identity headers. Header lookup is case-insensitive, so
// taskhub-namespace and TASKHUB-NAMESPACE both match.
const (
	HeaderNamespace = "Taskhub-Namespace"
	HeaderHunterID  = "Hunter-ID"
)

// Identity is the acting namespace and hunter for one request
type Identity struct {
	Namespace string
	HunterID  string
}

// IdentityFromHeaders resolves identity from request headers, falling
// back to configured defaults. A usable namespace is always required;
// the hunter may stay empty for read-only callers.
func IdentityFromHeaders(h http.Header, defaults types.IdentityConfig) (Identity, error) {
	id := Identity{
		Namespace: h.Get(HeaderNamespace),
		HunterID:  h.Get(HeaderHunterID),
	}
	if id.Namespace == "" {
		id.Namespace = defaults.DefaultNamespace
	}
	if id.HunterID == "" {
		id.HunterID = defaults.DefaultHunterID
	}
	if !store.ValidNamespace(id.Namespace) {
		return Identity{}, fmt.Errorf("%w: namespace %q", service.ErrIdentity, id.Namespace)
	}
	return id, nil
}

// ResolveIdentity applies defaults to an explicitly supplied identity,
// for transports that carry it in the payload instead of headers.
func ResolveIdentity(namespace, hunterID string, defaults types.IdentityConfig) (Identity, error) {
	if namespace == "" {
		namespace = defaults.DefaultNamespace
	}
	if hunterID == "" {
		hunterID = defaults.DefaultHunterID
	}
	if !store.ValidNamespace(namespace) {
		return Identity{}, fmt.Errorf("%w: namespace %q", service.ErrIdentity, namespace)
	}
	return Identity{Namespace: namespace, HunterID: hunterID}, nil
}

// RequireHunter errors when the identity carries no hunter ID
func (id Identity) RequireHunter() error {
	if id.HunterID == "" {
		return fmt.Errorf("%w: hunter ID is required", service.ErrIdentity)
	}
	return nil
}
