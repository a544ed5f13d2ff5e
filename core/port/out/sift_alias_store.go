package out

import "context"

// AliasStore is the dynamic half of service alias resolution: a small external
// key-value store mapping raw sending domains to the canonical domain of the
// owning service. A lookup miss returns ("", nil); errors mean the store is
// unreachable and the caller degrades to the raw domain.
type AliasStore interface {
	Canonical(ctx context.Context, rawDomain string) (string, error)
}
