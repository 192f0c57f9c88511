package quota_test

import (
	"testing"

	"github.com/aajunior43/bottelegramvideo/quota"
)

func TestInFlightCap(t *testing.T) {
	g := quota.NewGuard(quota.Config{MaxInFlight: 2})

	if !g.Acquire(1) || !g.Acquire(1) {
		t.Fatal("acquisitions under the cap refused")
	}
	if g.Acquire(1) {
		t.Error("acquisition over the cap allowed")
	}

	// Other chats are unaffected.
	if !g.Acquire(2) {
		t.Error("separate chat blocked by another chat's cap")
	}

	g.Release(1)
	if !g.Acquire(1) {
		t.Error("acquisition after release refused")
	}
}

func TestRateLimit(t *testing.T) {
	g := quota.NewGuard(quota.Config{RateLimit: 1, RateBurst: 2})

	if !g.Acquire(7) || !g.Acquire(7) {
		t.Fatal("burst acquisitions refused")
	}
	if g.Acquire(7) {
		t.Error("acquisition past the burst allowed")
	}
}

func TestOverCapRejectionKeepsRateToken(t *testing.T) {
	// Tiny sustained rate, burst of two tokens, one in-flight slot.
	g := quota.NewGuard(quota.Config{MaxInFlight: 1, RateLimit: 0.001, RateBurst: 2})

	if !g.Acquire(3) {
		t.Fatal("first acquisition refused")
	}
	// Rejected by the cap; the second burst token must survive.
	if g.Acquire(3) {
		t.Fatal("acquisition over the cap allowed")
	}

	g.Release(3)
	if !g.Acquire(3) {
		t.Error("over-cap rejection burned a rate token")
	}
}

func TestZeroConfigIsUnlimited(t *testing.T) {
	g := quota.NewGuard(quota.Config{})
	for i := 0; i < 100; i++ {
		if !g.Acquire(5) {
			t.Fatalf("unlimited guard refused acquisition %d", i)
		}
	}
}

func TestReleaseUnknownChat(t *testing.T) {
	g := quota.NewGuard(quota.Config{MaxInFlight: 1})
	g.Release(99) // must not panic or underflow
	if !g.Acquire(99) {
		t.Error("acquire after spurious release refused")
	}
	if g.InFlight(99) != 1 {
		t.Errorf("InFlight = %d, want 1", g.InFlight(99))
	}
}
