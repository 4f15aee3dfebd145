package domain

import "testing"

func TestDispatchTypeCodePrefix(t *testing.T) {
	cases := []struct {
		kind   DispatchType
		prefix string
	}{
		{DispatchPurchases, "COM"},
		{DispatchSales, "VEN"},
		{DispatchDeaths, "MOR"},
		{DispatchBirths, "NAS"},
		{DispatchTransfers, "TRA"},
		{DispatchReproductions, "REP"},
		{DispatchWeanings, "DES"},
		{DispatchNutrition, "NUT"},
		{DispatchFertilization, "FER"},
		{DispatchPastureChanges, "PAS"},
		{DispatchType("unmapped"), "PRO"},
	}
	for _, tc := range cases {
		if got := tc.kind.CodePrefix(); got != tc.prefix {
			t.Errorf("prefix for %s: got %s want %s", tc.kind, got, tc.prefix)
		}
	}
}

func TestDispatchTypeKnown(t *testing.T) {
	for _, kind := range DispatchTypes() {
		if !kind.Known() {
			t.Errorf("canonical kind %s reported unknown", kind)
		}
	}
	if DispatchType("harvest").Known() {
		t.Error("unexpected kind reported known")
	}
}

func TestDispatchTypesCoversAllPrefixes(t *testing.T) {
	if got, want := len(DispatchTypes()), len(dispatchPrefixes); got != want {
		t.Fatalf("DispatchTypes returned %d kinds, prefix table has %d", got, want)
	}
}

func TestFarmCloneIsolatesDistribution(t *testing.T) {
	farm := Farm{
		Base:               Base{ID: "farm-1"},
		AnimalDistribution: []CategoryCount{{CategoryID: "cat-1", Quantity: 10}},
	}
	cloned := farm.Clone()
	cloned.AnimalDistribution[0].Quantity = 99
	if farm.AnimalDistribution[0].Quantity != 10 {
		t.Fatalf("mutating clone leaked into original: %+v", farm.AnimalDistribution)
	}
}

func TestProtocolCloneIsolatesDetails(t *testing.T) {
	protocol := Protocol{
		Base:              Base{ID: "pro-1"},
		Status:            ProtocolStatusClosed,
		ProcessingDetails: LineItems{DeathItem{Category: "Vaca"}},
	}
	cloned := protocol.Clone()
	cloned.ProcessingDetails[0] = DeathItem{Category: "Touro"}
	if got := protocol.ProcessingDetails[0].(DeathItem).Category; got != "Vaca" {
		t.Fatalf("mutating clone leaked into original: %s", got)
	}
}

func TestResultHasBlocking(t *testing.T) {
	var res Result
	if res.HasBlocking() {
		t.Fatal("empty result should not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "x", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatal("warn severity should not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "y", Severity: SeverityBlock}}})
	if !res.HasBlocking() {
		t.Fatal("block severity should block")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
}
