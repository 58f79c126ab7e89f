package fedauth

import (
	"testing"
	"time"
)

func TestSAMLRequestLinkSession(t *testing.T) {
	r, err := AddSAMLRequest("instance-1", "org-1", "HTTP-POST", "https://idp/sso", "https://rp/acs", "req-1", "https://idp/issuer")
	if err != nil {
		t.Fatalf("AddSAMLRequest: %v", err)
	}
	if r.State != SAMLRequestStateAdded {
		t.Fatalf("expected added state, got %q", r.State)
	}

	if err := r.LinkSession("session-1"); err != nil {
		t.Fatalf("LinkSession: %v", err)
	}
	if r.State != SAMLRequestStateLinked || r.SessionID != "session-1" {
		t.Fatalf("unexpected post-link state: %+v", r)
	}

	if err := r.LinkSession("session-1"); err != nil {
		t.Fatalf("re-linking same session should be idempotent: %v", err)
	}
	if err := r.LinkSession("session-2"); err == nil {
		t.Fatal("expected error linking a different session")
	}
}

func TestSAMLRequestFailIsIdempotentAndTerminal(t *testing.T) {
	r, err := AddSAMLRequest("instance-1", "org-1", "HTTP-POST", "https://idp/sso", "https://rp/acs", "req-1", "https://idp/issuer")
	if err != nil {
		t.Fatalf("AddSAMLRequest: %v", err)
	}
	if err := r.Fail("signature invalid"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := r.Fail("signature invalid"); err != nil {
		t.Fatalf("duplicate Fail should be idempotent: %v", err)
	}
	if err := r.LinkSession("session-1"); err == nil {
		t.Fatal("expected error linking a failed request")
	}
}

func TestSAMLSessionExpiry(t *testing.T) {
	s, err := NewSAMLSession("instance-1", "org-1", "req-1", "user-1", time.Hour)
	if err != nil {
		t.Fatalf("NewSAMLSession: %v", err)
	}
	if !s.IsActive(s.CreatedAt) {
		t.Fatal("session should be active immediately")
	}
	if s.IsActive(s.CreatedAt.Add(2 * time.Hour)) {
		t.Fatal("session should be inactive after its absolute expiry")
	}

	if err := s.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if s.IsActive(s.CreatedAt) {
		t.Fatal("session should be inactive once explicitly terminated")
	}
	if err := s.Terminate(); err != nil {
		t.Fatalf("duplicate Terminate should be idempotent: %v", err)
	}
}

func TestValidateMetadataXML(t *testing.T) {
	valid := []byte(`<EntityDescriptor entityID="https://idp.example.com"></EntityDescriptor>`)
	if err := ValidateMetadataXML(valid); err != nil {
		t.Fatalf("expected valid metadata to pass, got %v", err)
	}
	invalid := []byte(`<NotADescriptor></NotADescriptor>`)
	if err := ValidateMetadataXML(invalid); err == nil {
		t.Fatal("expected error for metadata missing EntityDescriptor")
	}
}
