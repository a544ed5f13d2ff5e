package inference

import (
	"strings"

	"sift_server/core/domain"
)

// ServiceInfo is curated metadata for a well-known service domain.
type ServiceInfo struct {
	Name        string
	Category    domain.AccountCategory
	SettingsURL string
}

// Curated registry of well-known services. Display names and account
// settings URLs surface in the UI; categories here are only used when
// the domain matches.
var serviceRegistry = map[string]ServiceInfo{
	"google.com":    {Name: "Google", Category: domain.CategorySaaS, SettingsURL: "https://myaccount.google.com/"},
	"microsoft.com": {Name: "Microsoft", Category: domain.CategorySaaS, SettingsURL: "https://account.microsoft.com/"},
	"github.com":    {Name: "GitHub", Category: domain.CategorySaaS, SettingsURL: "https://github.com/settings"},
	"facebook.com":  {Name: "Facebook", Category: domain.CategorySocial, SettingsURL: "https://www.facebook.com/settings"},
	"instagram.com": {Name: "Instagram", Category: domain.CategorySocial, SettingsURL: "https://www.instagram.com/accounts/edit/"},
	"amazon.com":    {Name: "Amazon", Category: domain.CategoryEcommerce, SettingsURL: "https://www.amazon.com/your-account"},
	"paypal.com":    {Name: "PayPal", Category: domain.CategoryEcommerce, SettingsURL: "https://www.paypal.com/myaccount/settings/"},
	"netflix.com":   {Name: "Netflix", Category: domain.CategorySubscription, SettingsURL: "https://www.netflix.com/account"},
}

// LookupService returns curated info for a canonical domain: exact match
// first, then the last two labels.
func LookupService(serviceDomain string) (ServiceInfo, bool) {
	serviceDomain = strings.ToLower(serviceDomain)
	if info, ok := serviceRegistry[serviceDomain]; ok {
		return info, true
	}
	parts := strings.Split(serviceDomain, ".")
	if len(parts) > 2 {
		if info, ok := serviceRegistry[strings.Join(parts[len(parts)-2:], ".")]; ok {
			return info, true
		}
	}
	return ServiceInfo{}, false
}
