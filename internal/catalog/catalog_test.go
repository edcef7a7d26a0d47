package catalog_test

import (
	"testing"

	"github.com/boddenberg/plan-assistant-go/internal/catalog"
)

func TestLookup(t *testing.T) {
	c := catalog.New()

	for _, code := range []string{"basico", "Básico", " BASICO ", "BÁSICO", "Basíco"} {
		p, ok := c.Lookup(code)
		if !ok {
			t.Fatalf("expected %q to resolve", code)
		}
		if p.Price != "R$29,99" {
			t.Errorf("expected R$29,99, got %s", p.Price)
		}
	}

	p, ok := c.Lookup("premium")
	if !ok || p.Amount != 59.90 {
		t.Fatalf("unexpected premium plan: %+v", p)
	}
	if p.Title() != "Premium" {
		t.Errorf("expected title Premium, got %s", p.Title())
	}

	if _, ok := c.Lookup("gold"); ok {
		t.Error("unknown plan should not resolve")
	}
}

func TestAll_OrderAndImmutability(t *testing.T) {
	c := catalog.New()

	all := c.All()
	if len(all) != 2 || all[0].Code != catalog.PlanBasico || all[1].Code != catalog.PlanPremium {
		t.Fatalf("unexpected order: %+v", all)
	}

	all[0].Benefits[0] = "mutated"
	again, _ := c.Lookup(catalog.PlanBasico)
	if again.Benefits[0] != "15GB de internet" {
		t.Errorf("catalog data must not be mutable through copies, got %q", again.Benefits[0])
	}
}
