package fedauth

import (
	"strings"
	"testing"
	"time"
)

func TestCreatePushedAuthRequest(t *testing.T) {
	params := map[string]string{"response_type": "code", "redirect_uri": "https://rp/cb"}
	a, err := CreatePushedAuthRequest("instance-1", "org-1", "client-1", params)
	if err != nil {
		t.Fatalf("CreatePushedAuthRequest: %v", err)
	}
	if !strings.HasPrefix(a.GetID(), RequestURIPrefix) {
		t.Fatalf("expected request_uri prefix %q, got %q", RequestURIPrefix, a.GetID())
	}
	if !a.ExpiresAt.Equal(a.CreatedAt.Add(PARExpiry)) {
		t.Fatalf("expected 90s expiry, got created=%v expires=%v", a.CreatedAt, a.ExpiresAt)
	}

	params["response_type"] = "mutated"
	if a.Params["response_type"] != "code" {
		t.Fatal("expected AuthRequest to hold its own copy of params")
	}
}

func TestPushedAuthRequestSingleUse(t *testing.T) {
	a, err := CreatePushedAuthRequest("instance-1", "org-1", "client-1", nil)
	if err != nil {
		t.Fatalf("CreatePushedAuthRequest: %v", err)
	}
	if err := a.Consume(); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := a.Consume(); err == nil {
		t.Fatal("expected error consuming an already-consumed request_uri")
	}
}

func TestPushedAuthRequestExpiry(t *testing.T) {
	a, err := CreatePushedAuthRequest("instance-1", "org-1", "client-1", nil)
	if err != nil {
		t.Fatalf("CreatePushedAuthRequest: %v", err)
	}
	if a.IsExpired(a.CreatedAt) {
		t.Fatal("request should not be expired immediately")
	}
	if !a.IsExpired(a.CreatedAt.Add(91 * time.Second)) {
		t.Fatal("request should be expired after 91 seconds")
	}
}
