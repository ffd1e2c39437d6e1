package detect

import "testing"

func TestIsScamIndicatorThreshold(t *testing.T) {
	t.Parallel()

	d := New(DefaultConfig())

	if !d.IsScam("Your account will be blocked immediately, verify urgently now") {
		t.Fatal("expected scam: urgency + financial cues")
	}
	if d.IsScam("Hello, how are you?") {
		t.Fatal("expected not a scam")
	}
}

func TestIsScamTwoIndicators(t *testing.T) {
	t.Parallel()

	d := New(DefaultConfig())

	// "otp" and "password" are two distinct indicators; no urgency word.
	if !d.IsScam("Share your OTP and password to proceed") {
		t.Fatal("expected scam: two indicators")
	}
	// Single indicator, no urgency/financial pairing.
	if d.IsScam("We processed your refund last week, nothing to do") {
		t.Fatal("expected not a scam: one indicator only")
	}
}

func TestIsScamRepeatedIndicatorCountsOnce(t *testing.T) {
	t.Parallel()

	d := New(DefaultConfig())

	if d.IsScam("otp otp otp otp") {
		t.Fatal("a repeated indicator must count once")
	}
}

func TestIsScamOverlappingPhrasesBothCount(t *testing.T) {
	t.Parallel()

	d := New(Config{
		Indicators: []string{"verify", "verify immediately"},
	})

	// Both configured phrases occur (one inside the other); each counts.
	if !d.IsScam("please verify immediately") {
		t.Fatal("overlapping configured phrases must both count")
	}
}

func TestIsScamUrgencyAloneInsufficient(t *testing.T) {
	t.Parallel()

	d := New(DefaultConfig())

	if d.IsScam("Call me now, it is urgent!") {
		t.Fatal("urgency without a financial cue must not classify as scam")
	}
	if d.IsScam("I opened a bank account yesterday") {
		t.Fatal("financial cue without urgency must not classify as scam")
	}
}

func TestIsScamDeterministic(t *testing.T) {
	t.Parallel()

	d := New(DefaultConfig())
	const msg = "URGENT: your bank account is suspended, click here"

	first := d.IsScam(msg)
	for i := 0; i < 10; i++ {
		if d.IsScam(msg) != first {
			t.Fatal("IsScam must be deterministic")
		}
	}
	if !first {
		t.Fatal("expected scam")
	}
}
