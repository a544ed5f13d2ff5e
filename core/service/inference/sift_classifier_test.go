package inference

import (
	"testing"

	"sift_server/core/domain"
)

func TestClassifierRules(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name          string
		subject       string
		listUnsub     string
		wantIntent    domain.Intent
		wantWeight    float64
		wantSubject   domain.SubjectSignal
		wantUnsubFlag bool
	}{
		{
			name:        "welcome subject",
			subject:     "Welcome to Notion",
			wantIntent:  domain.IntentAccountCreated,
			wantWeight:  2.0,
			wantSubject: domain.SignalWelcome,
		},
		{
			name:        "signup thanks",
			subject:     "Thanks for signing up!",
			wantIntent:  domain.IntentAccountCreated,
			wantWeight:  2.0,
			wantSubject: domain.SignalWelcome,
		},
		{
			name:        "email verification",
			subject:     "Please verify your email",
			wantIntent:  domain.IntentEmailVerification,
			wantWeight:  2.5,
			wantSubject: domain.SignalVerification,
		},
		{
			name:        "new sign-in with hyphen",
			subject:     "New sign-in from Chrome on Mac",
			wantIntent:  domain.IntentLoginAlert,
			wantWeight:  2.0,
			wantSubject: domain.SignalLoginAlert,
		},
		{
			name:        "new login without hyphen",
			subject:     "new login to your account",
			wantIntent:  domain.IntentLoginAlert,
			wantWeight:  2.0,
			wantSubject: domain.SignalLoginAlert,
		},
		{
			name:        "password reset",
			subject:     "Reset your password",
			wantIntent:  domain.IntentPasswordReset,
			wantWeight:  2.2,
			wantSubject: domain.SignalPasswordReset,
		},
		{
			name:        "billing receipt",
			subject:     "Your receipt from Acme",
			wantIntent:  domain.IntentBillingReceipt,
			wantWeight:  1.8,
			wantSubject: domain.SignalBilling,
		},
		{
			name:          "newsletter requires list-unsubscribe",
			subject:       "Weekly digest",
			listUnsub:     "<mailto:unsub@example.com>",
			wantIntent:    domain.IntentNewsletter,
			wantWeight:    1.5,
			wantUnsubFlag: true,
		},
		{
			name:       "digest without list-unsubscribe is unknown",
			subject:    "Weekly digest",
			wantIntent: domain.IntentUnknown,
			wantWeight: 0.5,
		},
		{
			name:        "security alert",
			subject:     "Security alert: suspicious activity",
			wantIntent:  domain.IntentSecurityAlert,
			wantWeight:  2.0,
			wantSubject: domain.SignalSecurityAlert,
		},
		{
			name:          "unmatched subject with list-unsubscribe is marketing",
			subject:       "Big summer savings",
			listUnsub:     "<https://example.com/unsub>",
			wantIntent:    domain.IntentMarketing,
			wantWeight:    1.0,
			wantUnsubFlag: true,
		},
		{
			name:       "nothing matches",
			subject:    "hey, lunch tomorrow?",
			wantIntent: domain.IntentUnknown,
			wantWeight: 0.5,
		},
		{
			name:       "empty subject",
			subject:    "",
			wantIntent: domain.IntentUnknown,
			wantWeight: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(&domain.RawMessage{
				Subject:         tt.subject,
				ListUnsubscribe: tt.listUnsub,
			})
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %s, want %s", got.Intent, tt.wantIntent)
			}
			if got.Weight != tt.wantWeight {
				t.Errorf("weight = %v, want %v", got.Weight, tt.wantWeight)
			}
			if got.Signals.Subject != tt.wantSubject {
				t.Errorf("subject signal = %q, want %q", got.Signals.Subject, tt.wantSubject)
			}
			if got.Signals.ListUnsubscribe != tt.wantUnsubFlag {
				t.Errorf("list-unsubscribe signal = %v, want %v", got.Signals.ListUnsubscribe, tt.wantUnsubFlag)
			}
		})
	}
}

// A subject matching both the welcome and newsletter rules classifies by the
// earlier rule even when List-Unsubscribe is present.
func TestClassifierPriorityOrdering(t *testing.T) {
	classifier := NewClassifier()

	got := classifier.Classify(&domain.RawMessage{
		Subject:         "Welcome to our newsletter",
		ListUnsubscribe: "<mailto:unsub@example.com>",
	})
	if got.Intent != domain.IntentAccountCreated {
		t.Fatalf("intent = %s, want %s", got.Intent, domain.IntentAccountCreated)
	}
	if got.Weight != 2.0 {
		t.Errorf("weight = %v, want 2.0", got.Weight)
	}
}

func TestClassifierDeterminism(t *testing.T) {
	classifier := NewClassifier()
	msg := &domain.RawMessage{
		Subject:         "Your invoice for March",
		ListUnsubscribe: "<mailto:unsub@example.com>",
	}

	first := classifier.Classify(msg)
	for i := 0; i < 10; i++ {
		if got := classifier.Classify(msg); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}
