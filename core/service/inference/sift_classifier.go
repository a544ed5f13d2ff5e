package inference

import (
	"regexp"
	"strings"

	"sift_server/core/domain"
)

// =============================================================================
// Message Classifier
// =============================================================================

// Classifier maps a header tuple (from, subject, List-Unsubscribe presence)
// to an intent and an evidence weight via ordered rule matching. Pure and
// deterministic: the same input always yields the same verdict, which keeps
// evidence ids stable.
type Classifier struct {
	rules []intentRule
}

type intentRule struct {
	pattern      *regexp.Regexp
	requireUnsub bool // rule only fires when List-Unsubscribe is present
	intent       domain.Intent
	weight       float64
	subject      domain.SubjectSignal
	markUnsub    bool // record the List-Unsubscribe header as the signal
}

// NewClassifier creates a classifier with the fixed rule set.
func NewClassifier() *Classifier {
	c := &Classifier{}
	c.initRules()
	return c
}

// Classify matches the lowercased subject against the rules in strict
// priority order; the first match wins. Messages matching nothing classify
// as marketing when List-Unsubscribe is present, otherwise unknown.
func (c *Classifier) Classify(msg *domain.RawMessage) domain.Classification {
	subject := strings.ToLower(msg.Subject)
	hasUnsub := msg.ListUnsubscribe != ""

	for _, r := range c.rules {
		if r.requireUnsub && !hasUnsub {
			continue
		}
		if !r.pattern.MatchString(subject) {
			continue
		}
		cls := domain.Classification{Intent: r.intent, Weight: r.weight}
		cls.Signals.Subject = r.subject
		if r.markUnsub {
			cls.Signals.ListUnsubscribe = true
		}
		return cls
	}

	if hasUnsub {
		return domain.Classification{
			Intent:  domain.IntentMarketing,
			Weight:  1.0,
			Signals: domain.Signals{ListUnsubscribe: true},
		}
	}
	return domain.Classification{Intent: domain.IntentUnknown, Weight: 0.5}
}

func (c *Classifier) initRules() {
	c.rules = []intentRule{
		{
			pattern: regexp.MustCompile(`welcome|thanks for signing up|getting started`),
			intent:  domain.IntentAccountCreated,
			weight:  2.0,
			subject: domain.SignalWelcome,
		},
		{
			pattern: regexp.MustCompile(`verify your email|confirm your email|email verification`),
			intent:  domain.IntentEmailVerification,
			weight:  2.5,
			subject: domain.SignalVerification,
		},
		{
			pattern: regexp.MustCompile(`new (sign[- ]?in|login)|login alert|signed in`),
			intent:  domain.IntentLoginAlert,
			weight:  2.0,
			subject: domain.SignalLoginAlert,
		},
		{
			pattern: regexp.MustCompile(`reset your password|password reset|change password`),
			intent:  domain.IntentPasswordReset,
			weight:  2.2,
			subject: domain.SignalPasswordReset,
		},
		{
			pattern: regexp.MustCompile(`receipt|invoice|payment|order confirmation`),
			intent:  domain.IntentBillingReceipt,
			weight:  1.8,
			subject: domain.SignalBilling,
		},
		{
			pattern:      regexp.MustCompile(`newsletter|updates|digest|news`),
			requireUnsub: true,
			intent:       domain.IntentNewsletter,
			weight:       1.5,
			markUnsub:    true,
		},
		{
			pattern: regexp.MustCompile(`security alert|suspicious activity|protect|warning`),
			intent:  domain.IntentSecurityAlert,
			weight:  2.0,
			subject: domain.SignalSecurityAlert,
		},
	}
}
