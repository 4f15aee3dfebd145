package core

import (
	"sort"
	"strconv"
	"strings"

	"herdbook/pkg/domain"
)

const (
	calfMaleName   = "Bezerro"
	calfFemaleName = "Bezerra"
)

// reconcileInventory rolls a closed protocol's line items into per-farm,
// per-category animal counts. Category names resolve by exact match against
// the owner's categories at closure time; items naming an unresolvable
// category are skipped. Transfers deduct from the source farm even when the
// destination farm no longer exists.
func (s *Service) reconcileInventory(tx Transaction, farmID string, items LineItems) error {
	view := tx.Snapshot()
	categories := s.ownerCategories(view)
	byName := make(map[string]string, len(categories))
	for _, category := range categories {
		if _, ok := byName[category.Name]; !ok {
			byName[category.Name] = category.ID
		}
	}

	ledger := newInventoryLedger()
	for _, item := range items {
		switch record := item.(type) {
		case domain.PurchaseItem:
			if id, ok := byName[record.Category]; ok {
				ledger.add(farmID, id, parseCount(record.Quantity))
			}
		case domain.SaleItem:
			if id, ok := byName[record.Category]; ok {
				ledger.add(farmID, id, -parseCount(record.Quantity))
			}
		case domain.DeathItem:
			if id, ok := byName[record.Category]; ok {
				ledger.add(farmID, id, -1)
			}
		case domain.BirthItem:
			ledger.add(farmID, birthCategoryKey(categories, record.Sex), 1)
		case domain.TransferItem:
			id, ok := byName[record.Category]
			if !ok {
				continue
			}
			count := parseCount(record.AnimalCount)
			ledger.add(farmID, id, -count)
			if _, ok := s.ownsFarm(view, record.DestinationFarmID); ok {
				ledger.add(record.DestinationFarmID, id, count)
			}
		case domain.ReproductionItem, domain.WeaningItem, domain.NutritionItem,
			domain.FertilizationItem, domain.PastureChangeItem:
			// no inventory effect
		}
	}
	return ledger.apply(tx)
}

func (s *Service) ownerCategories(view TransactionView) []Category {
	var out []Category
	for _, category := range view.ListCategories() {
		if category.OwnerID == s.owner {
			out = append(out, category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return baseBefore(out[i].Base, out[j].Base) })
	return out
}

// birthCategoryKey picks the first owner category whose name contains the
// calf name for the newborn's sex, falling back to the literal calf name
// when none matches.
func birthCategoryKey(categories []Category, sex string) string {
	name := calfFemaleName
	if sex == domain.SexMale {
		name = calfMaleName
	}
	for _, category := range categories {
		if strings.Contains(category.Name, name) {
			return category.ID
		}
	}
	return name
}

func parseCount(value string) int {
	count, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return count
}

// inventoryLedger accumulates per-farm category deltas in first-touched
// order so new distribution entries append deterministically.
type inventoryLedger struct {
	deltas    map[string]map[string]int
	farmOrder []string
	keyOrder  map[string][]string
}

func newInventoryLedger() *inventoryLedger {
	return &inventoryLedger{
		deltas:   make(map[string]map[string]int),
		keyOrder: make(map[string][]string),
	}
}

func (l *inventoryLedger) add(farmID, categoryKey string, delta int) {
	farm, ok := l.deltas[farmID]
	if !ok {
		farm = make(map[string]int)
		l.deltas[farmID] = farm
		l.farmOrder = append(l.farmOrder, farmID)
	}
	if _, ok := farm[categoryKey]; !ok {
		l.keyOrder[farmID] = append(l.keyOrder[farmID], categoryKey)
	}
	farm[categoryKey] += delta
}

func (l *inventoryLedger) apply(tx Transaction) error {
	for _, farmID := range l.farmOrder {
		deltas := l.deltas[farmID]
		_, err := tx.UpdateFarm(farmID, func(farm *Farm) error {
			touched := make(map[string]bool, len(deltas))
			for i := range farm.AnimalDistribution {
				entry := &farm.AnimalDistribution[i]
				if delta, ok := deltas[entry.CategoryID]; ok {
					entry.Quantity += delta
					touched[entry.CategoryID] = true
				}
			}
			for _, key := range l.keyOrder[farmID] {
				if touched[key] {
					continue
				}
				farm.AnimalDistribution = append(farm.AnimalDistribution, CategoryCount{CategoryID: key, Quantity: deltas[key]})
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
