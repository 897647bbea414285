package entitykey

import (
	"testing"
)

func TestParse_Fixed(t *testing.T) {
	k, err := Parse("client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.Kind != KindFixed {
		t.Errorf("expected KindFixed, got %v", k.Kind)
	}
	if k.Raw != "client" || k.Slug != "" {
		t.Errorf("unexpected key: %+v", k)
	}
}

func TestParse_Generic(t *testing.T) {
	k, err := Parse("generic:vendors")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !k.IsGeneric() {
		t.Error("expected generic key")
	}
	if k.Slug != "vendors" {
		t.Errorf("expected slug vendors, got %s", k.Slug)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"Client",
		"9client",
		"client name",
		"generic:",
		"generic:Vendors",
		"generic: vendors",
	}

	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestParse_StorageFormRoundTrip(t *testing.T) {
	for _, raw := range []string{"purchase_order", "generic:sales-leads"} {
		k, err := Parse(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if k.String() != raw {
			t.Errorf("storage form changed: want %q, got %q", raw, k.String())
		}
	}
}
