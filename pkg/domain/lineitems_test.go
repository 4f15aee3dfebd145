package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLineItemsRoundTrip(t *testing.T) {
	items := LineItems{
		PurchaseItem{Category: "Boi Magro", Quantity: "25", Sex: SexMale, TotalWeight: "9000"},
		SaleItem{Category: "Boi Gordo", Quantity: "12", TotalPrice: "54000"},
		DeathItem{Category: "Vaca", Cause: "Acidente"},
		BirthItem{Sex: SexFemale, BirthWeight: "32"},
		TransferItem{Category: "Garrote", AnimalCount: "8", DestinationFarmID: "farm-2"},
		ReproductionItem{LotName: "Lote A", Inseminated: "40"},
		WeaningItem{WeaningLot: "Desmama 1", AnimalCount: "30"},
		NutritionItem{ProductName: "Sal Mineral", TotalVolume: "500"},
		FertilizationItem{Formula: "20-05-20", Hectares: "12"},
		PastureChangeItem{OriginPasture: "P1", DestinationPasture: "P2"},
	}

	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded LineItems
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != len(items) {
		t.Fatalf("expected %d items, got %d", len(items), len(decoded))
	}
	for i, item := range items {
		if decoded[i].Kind() != item.Kind() {
			t.Errorf("item %d: kind %s became %s", i, item.Kind(), decoded[i].Kind())
		}
	}
	purchase, ok := decoded[0].(PurchaseItem)
	if !ok {
		t.Fatalf("expected PurchaseItem, got %T", decoded[0])
	}
	if purchase.Quantity != "25" || purchase.Sex != SexMale {
		t.Fatalf("purchase fields lost in round trip: %+v", purchase)
	}
	transfer, ok := decoded[4].(TransferItem)
	if !ok {
		t.Fatalf("expected TransferItem, got %T", decoded[4])
	}
	if transfer.DestinationFarmID != "farm-2" {
		t.Fatalf("transfer destination lost: %+v", transfer)
	}
}

func TestLineItemsUnmarshalRejectsUnknownKind(t *testing.T) {
	var items LineItems
	err := json.Unmarshal([]byte(`[{"kind":"harvest","record":{}}]`), &items)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "harvest") {
		t.Fatalf("error should name the offending kind: %v", err)
	}
}

func TestLineItemsUnmarshalEmptyRecord(t *testing.T) {
	var items LineItems
	if err := json.Unmarshal([]byte(`[{"kind":"deaths"}]`), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if _, ok := items[0].(DeathItem); !ok {
		t.Fatalf("expected zero-value DeathItem, got %T", items[0])
	}
}

func TestLineItemsNilRoundTrip(t *testing.T) {
	var items LineItems
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded LineItems
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil sequence, got %v", decoded)
	}
}

func TestLineItemKindsMatchDispatchTypes(t *testing.T) {
	items := []LineItem{
		PurchaseItem{}, SaleItem{}, DeathItem{}, BirthItem{}, TransferItem{},
		ReproductionItem{}, WeaningItem{}, NutritionItem{}, FertilizationItem{},
		PastureChangeItem{},
	}
	kinds := DispatchTypes()
	if len(items) != len(kinds) {
		t.Fatalf("record shapes (%d) out of sync with dispatch kinds (%d)", len(items), len(kinds))
	}
	for i, item := range items {
		if item.Kind() != kinds[i] {
			t.Errorf("record %T reports kind %s, expected %s", item, item.Kind(), kinds[i])
		}
	}
}
