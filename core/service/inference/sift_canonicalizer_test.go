package inference

import (
	"context"
	"errors"
	"testing"
)

// fakeAliasStore is an in-memory stand-in for the dynamic alias store.
type fakeAliasStore struct {
	entries map[string]string
	err     error
	calls   int
}

func (f *fakeAliasStore) Canonical(_ context.Context, raw string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.entries[raw], nil
}

func TestCanonicalizerStaticTable(t *testing.T) {
	canon := NewCanonicalizer(nil)
	ctx := context.Background()

	tests := []struct {
		name          string
		rootDomain    string
		serviceDomain string
		want          string
	}{
		{name: "exact alias", rootDomain: "instagrammail.com", want: "instagram.com"},
		{name: "subdomain alias via exact entry", rootDomain: "mailer.netflix.com", want: "netflix.com"},
		{name: "tail-two-labels alias", rootDomain: "news.facebookmail.com", want: "facebook.com"},
		{name: "explicit service domain wins", rootDomain: "whatever.com", serviceDomain: "office.com", want: "microsoft.com"},
		{name: "uppercase input", rootDomain: "InstagramMail.com", want: "instagram.com"},
		{name: "no alias falls through to raw", rootDomain: "notion.so", want: "notion.so"},
		{name: "empty input", rootDomain: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canon.Canonical(ctx, tt.rootDomain, tt.serviceDomain)
			if got != tt.want {
				t.Errorf("Canonical(%q, %q) = %q, want %q", tt.rootDomain, tt.serviceDomain, got, tt.want)
			}
		})
	}
}

func TestCanonicalizerDynamicStore(t *testing.T) {
	store := &fakeAliasStore{entries: map[string]string{
		"acmemail.io": "acme.com",
	}}
	canon := NewCanonicalizer(store)
	ctx := context.Background()

	if got := canon.Canonical(ctx, "acmemail.io", ""); got != "acme.com" {
		t.Errorf("dynamic alias = %q, want acme.com", got)
	}

	// Static entries resolve without touching the store.
	store.calls = 0
	if got := canon.Canonical(ctx, "instagrammail.com", ""); got != "instagram.com" {
		t.Errorf("static alias = %q, want instagram.com", got)
	}
	if store.calls != 0 {
		t.Errorf("store consulted %d times for a static hit, want 0", store.calls)
	}
}

func TestCanonicalizerStoreFailureDegradesToRaw(t *testing.T) {
	store := &fakeAliasStore{err: errors.New("connection refused")}
	canon := NewCanonicalizer(store)

	got := canon.Canonical(context.Background(), "unknownsender.net", "")
	if got != "unknownsender.net" {
		t.Errorf("Canonical() = %q, want raw domain on store failure", got)
	}
}
