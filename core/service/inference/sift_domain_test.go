package inference

import "testing"

func TestExtractRegistrableDomain(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{
			name: "display name with deep subdomain and two-level TLD",
			from: `"A" <x@mail.sub.example.co.uk>`,
			want: "example.co.uk",
		},
		{
			name: "bare address",
			from: "x@example.com",
			want: "example.com",
		},
		{
			name: "subdomain collapses to registrable",
			from: "noreply@mailer.netflix.com",
			want: "netflix.com",
		},
		{
			name: "uppercase domain is lowercased",
			from: "Someone <person@Example.COM>",
			want: "example.com",
		},
		{
			name: "plus addressing",
			from: "me+tag@news.shop.example.org",
			want: "example.org",
		},
		{
			name: "not an email",
			from: "not-an-email",
			want: "",
		},
		{
			name: "empty input",
			from: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractRegistrableDomain(tt.from)
			if got != tt.want {
				t.Errorf("ExtractRegistrableDomain(%q) = %q, want %q", tt.from, got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{name: "angle brackets", from: "Svc <hello@app.example.com>", want: "app.example.com"},
		{name: "bare", from: "hello@example.com", want: "example.com"},
		{name: "garbage", from: "<<<@>>>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDomain(tt.from); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.from, got, tt.want)
			}
		})
	}
}

func TestExtractEmailAddress(t *testing.T) {
	got := ExtractEmailAddress(`"Support" <support@example.com>`)
	if got != "support@example.com" {
		t.Errorf("ExtractEmailAddress() = %q, want %q", got, "support@example.com")
	}
	if got := ExtractEmailAddress("nothing here"); got != "" {
		t.Errorf("ExtractEmailAddress() = %q, want empty", got)
	}
}
