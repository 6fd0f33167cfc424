package ai

import (
	"fmt"
	"testing"
	"time"
)

func TestPerUserLimit(t *testing.T) {
	l := newSlidingLimiter(time.Minute, 20, 3)
	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if !l.allow("dave") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.allow("dave") {
		t.Fatal("fourth request in the window should be blocked")
	}
	// other users are unaffected
	if !l.allow("alice") {
		t.Fatal("alice should be allowed")
	}
	// window slides
	l.now = func() time.Time { return base.Add(61 * time.Second) }
	if !l.allow("dave") {
		t.Fatal("dave should be allowed after the window passes")
	}
}

func TestGlobalLimit(t *testing.T) {
	l := newSlidingLimiter(time.Minute, 5, 3)
	base := time.Now()
	l.now = func() time.Time { return base }

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.allow(fmt.Sprintf("user%d", i)) {
			allowed++
		}
	}
	if allowed != 5 {
		t.Fatalf("expected 5 requests allowed globally, got %d", allowed)
	}
}

func TestClassifyCompletionError(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorClass
	}{
		{"completion request returned 429: rate limit", ErrorClassRetryable},
		{"completion request returned 503: overloaded", ErrorClassRetryable},
		{"context deadline exceeded", ErrorClassRetryable},
		{"dial tcp: connection refused", ErrorClassRetryable},
		{"completion request returned 401: invalid api key", ErrorClassFatal},
		{"completion request returned 400: invalid request", ErrorClassFatal},
		{"something inexplicable", ErrorClassUnknown},
	}
	for _, c := range cases {
		if got := ClassifyCompletionError(fmt.Errorf("%s", c.msg)); got != c.want {
			t.Errorf("ClassifyCompletionError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
	if got := ClassifyCompletionError(nil); got != ErrorClassUnknown {
		t.Errorf("nil error should classify unknown, got %v", got)
	}
}
