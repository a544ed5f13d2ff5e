package inference

import (
	"context"
	"strings"

	"sift_server/core/port/out"
)

// =============================================================================
// Service Canonicalizer
// =============================================================================

// AliasResolver maps a raw sending domain to the canonical domain of the
// owning service. ok is false on a miss; err means the resolver could not be
// consulted and the chain degrades to the raw domain.
type AliasResolver interface {
	Resolve(ctx context.Context, raw string) (canonical string, ok bool, err error)
}

// Canonicalizer runs an ordered resolver chain: the static in-memory table
// first, then the dynamic alias store when one is configured.
type Canonicalizer struct {
	chain []AliasResolver
}

// NewCanonicalizer builds the default chain. store may be nil.
func NewCanonicalizer(store out.AliasStore) *Canonicalizer {
	c := &Canonicalizer{chain: []AliasResolver{newStaticAliasResolver()}}
	if store != nil {
		c.chain = append(c.chain, &storeAliasResolver{store: store})
	}
	return c
}

// Canonical resolves the canonical service domain for a message. An explicit
// serviceDomain override wins over the extracted root domain. Returns "" only
// when no domain was extracted upstream; callers must skip inference then.
func (c *Canonicalizer) Canonical(ctx context.Context, rootDomain, serviceDomain string) string {
	raw := serviceDomain
	if raw == "" {
		raw = rootDomain
	}
	raw = strings.ToLower(raw)
	if raw == "" {
		return ""
	}

	for _, r := range c.chain {
		canonical, ok, err := r.Resolve(ctx, raw)
		if err != nil {
			// Alias store unreachable: degrade to the raw domain rather than
			// failing the whole inference step.
			continue
		}
		if ok {
			return canonical
		}
	}
	return raw
}

// -----------------------------------------------------------------------------
// Static table
// -----------------------------------------------------------------------------

type staticAliasResolver struct {
	aliases map[string]string
}

func newStaticAliasResolver() *staticAliasResolver {
	return &staticAliasResolver{aliases: map[string]string{
		"instagrammail.com":   "instagram.com",
		"facebookmail.com":    "facebook.com",
		"mailer.netflix.com":  "netflix.com",
		"accounts.google.com": "google.com",
		"mail.github.com":     "github.com",
		"e.mail.paypal.com":   "paypal.com",
		"office.com":          "microsoft.com",
	}}
}

// Resolve tries an exact match first, then the last two labels (so
// news.facebookmail.com still resolves through facebookmail.com).
func (r *staticAliasResolver) Resolve(_ context.Context, raw string) (string, bool, error) {
	if canonical, ok := r.aliases[raw]; ok {
		return canonical, true, nil
	}
	parts := strings.Split(raw, ".")
	if len(parts) > 2 {
		tail := strings.Join(parts[len(parts)-2:], ".")
		if canonical, ok := r.aliases[tail]; ok {
			return canonical, true, nil
		}
	}
	return "", false, nil
}

// -----------------------------------------------------------------------------
// Dynamic store
// -----------------------------------------------------------------------------

type storeAliasResolver struct {
	store out.AliasStore
}

func (r *storeAliasResolver) Resolve(ctx context.Context, raw string) (string, bool, error) {
	canonical, err := r.store.Canonical(ctx, raw)
	if err != nil {
		return "", false, err
	}
	if canonical == "" {
		return "", false, nil
	}
	return strings.ToLower(canonical), true, nil
}
