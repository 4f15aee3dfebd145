package domain

import (
	"encoding/json"
	"fmt"
)

// LineItem is one processed entry of a closed protocol. The concrete record
// shape depends on the dispatch kind; field values are kept as entered on the
// form and parsed only where reconciliation needs numbers.
type LineItem interface {
	Kind() DispatchType
}

// LineItems is the ordered sequence of processed entries attached to a
// protocol at closure.
type LineItems []LineItem

// PurchaseItem records one purchased lot of animals.
type PurchaseItem struct {
	Date                 string `json:"date"`
	Pasture              string `json:"pasture"`
	Owner                string `json:"owner"`
	Supplier             string `json:"supplier"`
	Category             string `json:"category"`
	Quantity             string `json:"quantity"`
	AgeInMonths          string `json:"ageInMonths"`
	Sex                  string `json:"sex"`
	AvgWeight            string `json:"avgWeight"`
	TotalWeight          string `json:"totalWeight"`
	PricePerKg           string `json:"pricePerKg"`
	CommissionPercentage string `json:"commissionPercentage"`
	CommissionValue      string `json:"commissionValue"`
	FreightValue         string `json:"freightValue"`
	Freighter            string `json:"freighter"`
	PricePerUnit         string `json:"pricePerUnit"`
	TotalPrice           string `json:"totalPrice"`
	FinalPricePerKg      string `json:"finalPricePerKg"`
	InvoiceNumber        string `json:"invoiceNumber"`
	FarmWeightTotal      string `json:"farmWeightTotal"`
	WeightDifferenceKg   string `json:"weightDifferenceKg"`
	BreakPercentage      string `json:"breakPercentage"`
	ProductionSystem     string `json:"productionSystem"`
}

// SaleItem records one sold lot of animals.
type SaleItem struct {
	Date                 string `json:"date"`
	Pasture              string `json:"pasture"`
	Owner                string `json:"owner"`
	Buyer                string `json:"buyer"`
	Category             string `json:"category"`
	Quantity             string `json:"quantity"`
	Sex                  string `json:"sex"`
	AvgWeight            string `json:"avgWeight"`
	TotalWeight          string `json:"totalWeight"`
	PricePerKg           string `json:"pricePerKg"`
	CommissionPercentage string `json:"commissionPercentage"`
	CommissionValue      string `json:"commissionValue"`
	Commissioned         string `json:"commissioned"`
	PricePerUnit         string `json:"pricePerUnit"`
	TotalPrice           string `json:"totalPrice"`
	FinalPricePerKg      string `json:"finalPricePerKg"`
	InvoiceNumber        string `json:"invoiceNumber"`
	ProductionSystem     string `json:"productionSystem"`
}

// DeathItem records the loss of a single animal.
type DeathItem struct {
	Date          string `json:"date"`
	Category      string `json:"category"`
	AnimalID      string `json:"animalId"`
	Chip          string `json:"chip"`
	SisbovEarring string `json:"sisbovEarring"`
	Breed         string `json:"breed"`
	Sex           string `json:"sex"`
	LastWeight    string `json:"lastWeight"`
	Cause         string `json:"cause"`
	Pasture       string `json:"pasture"`
	Activity      string `json:"activity"`
	Producer      string `json:"producer"`
}

// BirthItem records a single birth.
type BirthItem struct {
	Date           string `json:"date"`
	Lot            string `json:"lot"`
	Pasture        string `json:"pasture"`
	MothersIron    string `json:"mothersIron"`
	MothersEarring string `json:"mothersEarring"`
	MothersChip    string `json:"mothersChip"`
	NewbornEarring string `json:"newbornEarring"`
	NewbornChip    string `json:"newbornChip"`
	Tattoo         string `json:"tattoo"`
	Sex            string `json:"sex"`
	Breed          string `json:"breed"`
	BirthWeight    string `json:"birthWeight"`
}

// TransferItem records animals moved between farms.
type TransferItem struct {
	Date               string `json:"date"`
	Category           string `json:"category"`
	AnimalCount        string `json:"animalCount"`
	DestinationFarmID  string `json:"destinationFarmId"`
	OriginPasture      string `json:"originPasture"`
	DestinationPasture string `json:"destinationPasture"`
}

// ReproductionItem records an insemination lot and its diagnosis outcome.
type ReproductionItem struct {
	Date          string `json:"date"`
	LotName       string `json:"lotName"`
	Category      string `json:"category"`
	AnimalCount   string `json:"animalCount"`
	Inseminated   string `json:"inseminated"`
	DGDate        string `json:"dgDate"`
	DGDayInterval string `json:"dgDayInterval"`
	Diagnosed     string `json:"diagnosed"`
	Pregnant      string `json:"pregnant"`
	Empty         string `json:"empty"`
	Missed        string `json:"missed"`
	PregnancyRate string `json:"pregnancyRate"`
}

// WeaningItem records a weaned lot of calves.
type WeaningItem struct {
	Date        string `json:"date"`
	WeaningLot  string `json:"weaningLot"`
	CowCategory string `json:"cowCategory"`
	Sex         string `json:"sex"`
	AnimalCount string `json:"animalCount"`
	AvgWeight   string `json:"avgWeight"`
	TotalWeight string `json:"totalWeight"`
}

// NutritionItem records supplement or feed consumption.
type NutritionItem struct {
	Date                 string `json:"date"`
	Activity             string `json:"activity"`
	Lot                  string `json:"lot"`
	Pasture              string `json:"pasture"`
	ProductType          string `json:"productType"`
	ProductName          string `json:"productName"`
	CompanyName          string `json:"companyName"`
	Unit                 string `json:"unit"`
	UnitVolume           string `json:"unitVolume"`
	TotalVolume          string `json:"totalVolume"`
	Quantity             string `json:"quantity"`
	EstimatedConsumption string `json:"estimatedConsumption"`
	PricePerKg           string `json:"pricePerKg"`
	TotalPrice           string `json:"totalPrice"`
}

// FertilizationItem records pasture fertilization work.
type FertilizationItem struct {
	Date               string `json:"date"`
	Pasture            string `json:"pasture"`
	FertilizationType  string `json:"fertilizationType"`
	Formula            string `json:"formula"`
	Hectares           string `json:"hectares"`
	QuantityPerHectare string `json:"quantityPerHectare"`
	TotalQuantity      string `json:"totalQuantity"`
	PricePerKg         string `json:"pricePerKg"`
	TotalPrice         string `json:"totalPrice"`
}

// PastureChangeItem records animals rotated between pastures.
type PastureChangeItem struct {
	Date               string `json:"date"`
	Activity           string `json:"activity"`
	Category           string `json:"category"`
	AnimalCount        string `json:"animalCount"`
	OriginPasture      string `json:"originPasture"`
	DestinationFarmID  string `json:"destinationFarmId"`
	DestinationPasture string `json:"destinationPasture"`
}

// Kind implements LineItem for each record shape.
func (PurchaseItem) Kind() DispatchType      { return DispatchPurchases }
func (SaleItem) Kind() DispatchType          { return DispatchSales }
func (DeathItem) Kind() DispatchType         { return DispatchDeaths }
func (BirthItem) Kind() DispatchType         { return DispatchBirths }
func (TransferItem) Kind() DispatchType      { return DispatchTransfers }
func (ReproductionItem) Kind() DispatchType  { return DispatchReproductions }
func (WeaningItem) Kind() DispatchType       { return DispatchWeanings }
func (NutritionItem) Kind() DispatchType     { return DispatchNutrition }
func (FertilizationItem) Kind() DispatchType { return DispatchFertilization }
func (PastureChangeItem) Kind() DispatchType { return DispatchPastureChanges }

type lineItemEnvelope struct {
	Kind   DispatchType    `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// MarshalJSON serialises each item as a kind-tagged envelope so the sequence
// survives round trips without losing the concrete record shape.
func (l LineItems) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	envelopes := make([]lineItemEnvelope, 0, len(l))
	for _, item := range l {
		record, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, lineItemEnvelope{Kind: item.Kind(), Record: record})
	}
	return json.Marshal(envelopes)
}

// UnmarshalJSON decodes the kind-tagged envelope array back into typed
// records. Unknown kinds are rejected.
func (l *LineItems) UnmarshalJSON(data []byte) error {
	var envelopes []lineItemEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}
	if envelopes == nil {
		*l = nil
		return nil
	}
	items := make(LineItems, 0, len(envelopes))
	for _, env := range envelopes {
		item, err := decodeLineItem(env)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	*l = items
	return nil
}

func decodeLineItem(env lineItemEnvelope) (LineItem, error) {
	unmarshal := func(target any) error {
		if len(env.Record) == 0 {
			return nil
		}
		return json.Unmarshal(env.Record, target)
	}
	switch env.Kind {
	case DispatchPurchases:
		var item PurchaseItem
		return item, unmarshal(&item)
	case DispatchSales:
		var item SaleItem
		return item, unmarshal(&item)
	case DispatchDeaths:
		var item DeathItem
		return item, unmarshal(&item)
	case DispatchBirths:
		var item BirthItem
		return item, unmarshal(&item)
	case DispatchTransfers:
		var item TransferItem
		return item, unmarshal(&item)
	case DispatchReproductions:
		var item ReproductionItem
		return item, unmarshal(&item)
	case DispatchWeanings:
		var item WeaningItem
		return item, unmarshal(&item)
	case DispatchNutrition:
		var item NutritionItem
		return item, unmarshal(&item)
	case DispatchFertilization:
		var item FertilizationItem
		return item, unmarshal(&item)
	case DispatchPastureChanges:
		var item PastureChangeItem
		return item, unmarshal(&item)
	default:
		return nil, fmt.Errorf("unknown line item kind %q", env.Kind)
	}
}
