package idp

import (
	"testing"

	"github.com/nexusiam/core/pkg/domain"
)

func TestNewIDPConfigRejectsUnknownType(t *testing.T) {
	c := NewIDPConfig("instance-1", "", Type("bogus"), "test", nil)
	if len(c.Errors()) == 0 {
		t.Fatal("expected error for unsupported type")
	}
}

func TestIDPConfigUpdateAndRemove(t *testing.T) {
	c := NewIDPConfig("instance-1", "org-1", TypeOIDC, "google", Config{"issuer": "https://accounts.google.com"})
	c.UpdateConfig(Config{"clientId": "abc"})
	if c.Config["clientId"] != "abc" {
		t.Fatalf("expected clientId to be set, got %+v", c.Config)
	}

	c.Remove()
	c.ChangeName("renamed")
	if len(c.Errors()) == 0 {
		t.Fatal("expected error mutating a removed config")
	}
}

func TestIDPConfigLoadFromHistory(t *testing.T) {
	c := NewIDPConfig("instance-1", "", TypeSAML, "okta", Config{"metadataUrl": "https://okta.example/metadata"})
	c.Deactivate()
	events := c.UncommittedEvents()

	loaded := New()
	loaded.LoadFromHistory(events)

	if loaded.State != StateInactive {
		t.Errorf("expected inactive, got %q", loaded.State)
	}
	if loaded.Config["metadataUrl"] == "" {
		t.Errorf("expected metadataUrl to survive replay, got %+v", loaded.Config)
	}
}

var _ domain.AggregateRoot = (*IDPConfig)(nil)
