package core

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"herdbook/pkg/domain"
)

// ReportKind selects one of the fixed-layout report tables derived from a
// farm's closed protocols.
type ReportKind string

const (
	ReportCommercialMovements ReportKind = "commercialMovements"
	ReportMortality           ReportKind = "mortality"
	ReportBirths              ReportKind = "births"
	ReportTransfers           ReportKind = "transfers"
	ReportReproduction        ReportKind = "reproduction"
	ReportWeaning             ReportKind = "weaning"
	ReportNutrition           ReportKind = "nutrition"
	ReportFertilization       ReportKind = "fertilization"
	ReportPastureChange       ReportKind = "pastureChange"
	ReportStockEvolution      ReportKind = "stockEvolution"
)

// ReportKinds returns every report kind in presentation order.
func ReportKinds() []ReportKind {
	return []ReportKind{
		ReportCommercialMovements,
		ReportMortality,
		ReportBirths,
		ReportTransfers,
		ReportReproduction,
		ReportWeaning,
		ReportNutrition,
		ReportFertilization,
		ReportPastureChange,
		ReportStockEvolution,
	}
}

var reportTitles = map[ReportKind]string{
	ReportCommercialMovements: "Movimentações Comerciais",
	ReportMortality:           "Mortalidade",
	ReportBirths:              "Nascimentos",
	ReportTransfers:           "Transferência",
	ReportReproduction:        "Reprodução",
	ReportWeaning:             "Desmame",
	ReportNutrition:           "Nutrição",
	ReportFertilization:       "Adubação",
	ReportPastureChange:       "Troca de Pasto",
	ReportStockEvolution:      "Evolução de Estoque",
}

// ReportFilter scopes a report to one farm and one month. Buckets optionally
// restricts the day-of-month buckets considered; an empty slice keeps the
// whole month.
type ReportFilter struct {
	FarmID  string
	Year    int
	Month   time.Month
	Buckets []string
}

// Report is one rendered report: a titled sequence of tables.
type Report struct {
	Kind   ReportKind `json:"kind"`
	Title  string     `json:"title"`
	Tables []Table    `json:"tables"`
}

// Table is a fixed-layout section of a report.
type Table struct {
	Title   string   `json:"title,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Rows    []Row    `json:"rows"`
}

// Row is one labeled table line.
type Row struct {
	Label string   `json:"label"`
	Cells []string `json:"cells"`
}

type dayBucket struct {
	label string
	first int
	last  int
}

// The last bucket covers days 20-31 but keeps the historical label.
var dayBuckets = []dayBucket{
	{label: "1 a 5", first: 1, last: 5},
	{label: "6 a 12", first: 6, last: 12},
	{label: "13 a 19", first: 13, last: 19},
	{label: "20 a 30", first: 20, last: 31},
}

// BucketLabels returns the selectable day-of-month bucket labels.
func BucketLabels() []string {
	labels := make([]string, 0, len(dayBuckets))
	for _, bucket := range dayBuckets {
		labels = append(labels, bucket.label)
	}
	return labels
}

func bucketColumns() []string {
	return append(BucketLabels(), "A.C. Mês", "A.C. Safra")
}

// GenerateReport renders one report kind for an owned farm over the filtered
// month. Only closed protocols contribute; placement uses the closure time,
// falling back to the creation time.
func (s *Service) GenerateReport(ctx context.Context, kind ReportKind, filter ReportFilter) (Report, error) {
	title, ok := reportTitles[kind]
	if !ok {
		return Report{}, fmt.Errorf("unknown report kind %q", kind)
	}
	var report Report
	err := s.store.View(ctx, func(view TransactionView) error {
		farm, ok := s.ownsFarm(view, filter.FarmID)
		if !ok {
			return ErrNotFound{Entity: EntityFarm, ID: filter.FarmID}
		}
		builder := newReportBuilder(s, view, farm, filter)
		report = Report{Kind: kind, Title: title, Tables: builder.build(kind)}
		return nil
	})
	return report, err
}

func protocolTime(p Protocol) time.Time {
	if p.UpdatedAt.IsZero() {
		return p.CreatedAt
	}
	return p.UpdatedAt
}

type reportBuilder struct {
	farm       Farm
	farms      map[string]Farm
	categories []Category
	filter     ReportFilter

	all   []Protocol // the farm's closed protocols, oldest first
	month []Protocol // filtered to the selected month and buckets
	year  []Protocol // filtered to the selected year
}

func newReportBuilder(s *Service, view TransactionView, farm Farm, filter ReportFilter) *reportBuilder {
	b := &reportBuilder{
		farm:       farm,
		farms:      make(map[string]Farm),
		categories: s.ownerCategories(view),
		filter:     filter,
	}
	for _, other := range view.ListFarms() {
		if _, ok := s.ownsFarm(view, other.ID); ok {
			b.farms[other.ID] = other
		}
	}
	for _, protocol := range view.ListProtocols() {
		if protocol.FarmID != farm.ID || protocol.Status != ProtocolStatusClosed {
			continue
		}
		b.all = append(b.all, protocol)
	}
	sort.Slice(b.all, func(i, j int) bool {
		ti, tj := protocolTime(b.all[i]), protocolTime(b.all[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return b.all[i].ID < b.all[j].ID
	})
	for _, protocol := range b.all {
		at := protocolTime(protocol)
		if at.Year() != filter.Year {
			continue
		}
		b.year = append(b.year, protocol)
		if at.Month() != filter.Month {
			continue
		}
		if len(filter.Buckets) > 0 && !bucketSelected(filter.Buckets, at.Day()) {
			continue
		}
		b.month = append(b.month, protocol)
	}
	return b
}

func bucketSelected(labels []string, day int) bool {
	for _, bucket := range dayBuckets {
		if day < bucket.first || day > bucket.last {
			continue
		}
		for _, label := range labels {
			if label == bucket.label {
				return true
			}
		}
		return false
	}
	return false
}

func (b *reportBuilder) build(kind ReportKind) []Table {
	switch kind {
	case ReportCommercialMovements:
		return b.commercialMovements()
	case ReportMortality:
		return b.mortality()
	case ReportBirths:
		return b.births()
	case ReportTransfers:
		return b.transfers()
	case ReportReproduction:
		return b.reproduction()
	case ReportWeaning:
		return b.weaning()
	case ReportNutrition:
		return b.nutrition()
	case ReportFertilization:
		return b.fertilization()
	case ReportPastureChange:
		return b.pastureChange()
	case ReportStockEvolution:
		return b.stockEvolution()
	}
	return nil
}

// datedValue carries one numeric contribution pinned to a day of month.
type datedValue struct {
	day   int
	value float64
}

// items flattens the processing details of the given protocols for one
// dispatch kind, pairing every line item with the protocol's placement day.
func items[T LineItem](protocols []Protocol, kind DispatchType) []struct {
	day  int
	item T
} {
	var out []struct {
		day  int
		item T
	}
	for _, protocol := range protocols {
		if protocol.Type != kind {
			continue
		}
		day := protocolTime(protocol).Day()
		for _, raw := range protocol.ProcessingDetails {
			if item, ok := raw.(T); ok {
				out = append(out, struct {
					day  int
					item T
				}{day: day, item: item})
			}
		}
	}
	return out
}

func parseNumber(value string) float64 {
	number, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return number
}

func formatCount(value float64) string    { return strconv.FormatFloat(value, 'f', 0, 64) }
func formatWeight(value float64) string   { return strconv.FormatFloat(value, 'f', 2, 64) }
func formatCurrency(value float64) string { return "R$ " + strconv.FormatFloat(value, 'f', 2, 64) }

// bucketRow sums the month values into the four day buckets and appends the
// month and year accumulators.
func bucketRow(label string, month []datedValue, yearTotal float64, format func(float64) string) Row {
	cells := make([]string, 0, len(dayBuckets)+2)
	var monthTotal float64
	for _, bucket := range dayBuckets {
		var sum float64
		for _, dv := range month {
			if dv.day >= bucket.first && dv.day <= bucket.last {
				sum += dv.value
			}
		}
		monthTotal += sum
		cells = append(cells, format(sum))
	}
	cells = append(cells, format(monthTotal), format(yearTotal))
	return Row{Label: label, Cells: cells}
}

// summaryRow leaves the bucket cells blank and repeats the value in the month
// and year accumulators.
func summaryRow(label, value string) Row {
	cells := make([]string, len(dayBuckets), len(dayBuckets)+2)
	cells = append(cells, value, value)
	return Row{Label: label, Cells: cells}
}

func fieldRow(label, value string) Row {
	return Row{Label: label, Cells: []string{value}}
}

func (b *reportBuilder) commercialMovements() []Table {
	section := func(title string, kind DispatchType) Table {
		var rows []Row
		appendRows := func(month, year []commercialEntry) {
			format := []func(float64) string{formatCount, formatWeight, formatWeight, formatCurrency, formatCurrency, formatCurrency}
			labels := []string{
				"Número de animais",
				"Peso total (Kg)",
				"Peso médio (Kg)",
				"Valor total (R$)",
				"Valor unitário (R$)",
				"Valor do Kg (R$)",
			}
			for i, label := range labels {
				rows = append(rows, bucketRow(label, pick(month, i), sumPick(year, i), format[i]))
			}
		}
		if kind == domain.DispatchPurchases {
			appendRows(purchaseSeries(b.month), purchaseSeries(b.year))
		} else {
			appendRows(saleSeries(b.month), saleSeries(b.year))
		}
		return Table{Title: title, Columns: bucketColumns(), Rows: rows}
	}
	return []Table{
		section("COMPRAS", domain.DispatchPurchases),
		section("VENDAS", domain.DispatchSales),
	}
}

// commercialEntry carries the six commercial metrics for one line item.
type commercialEntry struct {
	day    int
	values [6]float64
}

func purchaseSeries(protocols []Protocol) []commercialEntry {
	var out []commercialEntry
	for _, entry := range items[domain.PurchaseItem](protocols, domain.DispatchPurchases) {
		quantity := parseNumber(entry.item.Quantity)
		totalWeight := parseNumber(entry.item.TotalWeight)
		var avgWeight float64
		if quantity > 0 {
			avgWeight = totalWeight / quantity
		}
		out = append(out, commercialEntry{day: entry.day, values: [6]float64{
			quantity,
			totalWeight,
			avgWeight,
			parseNumber(entry.item.TotalPrice),
			parseNumber(entry.item.PricePerUnit),
			parseNumber(entry.item.PricePerKg),
		}})
	}
	return out
}

func saleSeries(protocols []Protocol) []commercialEntry {
	var out []commercialEntry
	for _, entry := range items[domain.SaleItem](protocols, domain.DispatchSales) {
		quantity := parseNumber(entry.item.Quantity)
		totalWeight := parseNumber(entry.item.TotalWeight)
		var avgWeight float64
		if quantity > 0 {
			avgWeight = totalWeight / quantity
		}
		out = append(out, commercialEntry{day: entry.day, values: [6]float64{
			quantity,
			totalWeight,
			avgWeight,
			parseNumber(entry.item.TotalPrice),
			parseNumber(entry.item.PricePerUnit),
			parseNumber(entry.item.PricePerKg),
		}})
	}
	return out
}

func pick(series []commercialEntry, index int) []datedValue {
	out := make([]datedValue, 0, len(series))
	for _, entry := range series {
		out = append(out, datedValue{day: entry.day, value: entry.values[index]})
	}
	return out
}

func sumPick(series []commercialEntry, index int) float64 {
	var total float64
	for _, entry := range series {
		total += entry.values[index]
	}
	return total
}

var (
	mortalityMaleCategories   = []string{"Terneiro", "Novilho", "Boi", "Touro"}
	mortalityFemaleCategories = []string{"Terneira", "Novilha vazia", "Novilha Prenhe", "Vaca Vazia", "Vaca Prenhe"}
)

func (b *reportBuilder) mortality() []Table {
	monthDeaths := items[domain.DeathItem](b.month, domain.DispatchDeaths)
	yearDeaths := items[domain.DeathItem](b.year, domain.DispatchDeaths)

	countRow := func(label string, match func(domain.DeathItem) bool) Row {
		var month []datedValue
		for _, entry := range monthDeaths {
			if match(entry.item) {
				month = append(month, datedValue{day: entry.day, value: 1})
			}
		}
		var yearTotal float64
		for _, entry := range yearDeaths {
			if match(entry.item) {
				yearTotal++
			}
		}
		return bucketRow(label, month, yearTotal, formatCount)
	}

	categoryTable := func(categories []string, sex string) Table {
		rows := make([]Row, 0, len(categories)+1)
		for _, category := range categories {
			category := category
			rows = append(rows, countRow(category, func(item domain.DeathItem) bool { return item.Category == category }))
		}
		rows = append(rows, countRow("Total", func(item domain.DeathItem) bool { return item.Sex == sex }))
		return Table{Title: "MORTES", Columns: bucketColumns(), Rows: rows}
	}

	bySex := Table{Title: "MORTES", Columns: bucketColumns(), Rows: []Row{
		countRow(domain.SexMale, func(item domain.DeathItem) bool { return item.Sex == domain.SexMale }),
		countRow(domain.SexFemale, func(item domain.DeathItem) bool { return item.Sex == domain.SexFemale }),
		countRow("Total", func(domain.DeathItem) bool { return true }),
	}}

	return []Table{
		categoryTable(mortalityMaleCategories, domain.SexMale),
		categoryTable(mortalityFemaleCategories, domain.SexFemale),
		bySex,
	}
}

func (b *reportBuilder) births() []Table {
	monthBirths := items[domain.BirthItem](b.month, domain.DispatchBirths)
	yearBirths := items[domain.BirthItem](b.year, domain.DispatchBirths)

	summary := Table{Title: "NASCIMENTOS", Columns: bucketColumns(), Rows: []Row{
		summaryRow("Previsão a nascer na safra", ""),
		summaryRow("Morte de Matriz Prenhe", ""),
		summaryRow("Abortos", ""),
		summaryRow("Venda de matriz Prenhe", ""),
		summaryRow("Previsão a nascer atualizada", ""),
		summaryRow("Total nascido", strconv.Itoa(len(monthBirths))),
		summaryRow("Falta nascer", ""),
		summaryRow("Percentual de nascimentos efetivados", ""),
	}}

	countRow := func(label string, match func(domain.BirthItem) bool) Row {
		var month []datedValue
		for _, entry := range monthBirths {
			if match(entry.item) {
				month = append(month, datedValue{day: entry.day, value: 1})
			}
		}
		var yearTotal float64
		for _, entry := range yearBirths {
			if match(entry.item) {
				yearTotal++
			}
		}
		return bucketRow(label, month, yearTotal, formatCount)
	}

	born := Table{Title: "Nascidos", Columns: bucketColumns(), Rows: []Row{
		countRow(domain.SexMale, func(item domain.BirthItem) bool { return item.Sex == domain.SexMale }),
		countRow(domain.SexFemale, func(item domain.BirthItem) bool { return item.Sex == domain.SexFemale }),
		countRow("Total", func(domain.BirthItem) bool { return true }),
	}}
	return []Table{summary, born}
}

func (b *reportBuilder) farmName(id string) string {
	if farm, ok := b.farms[id]; ok {
		return farm.Name
	}
	return id
}

func (b *reportBuilder) transfers() []Table {
	var tables []Table
	for _, entry := range items[domain.TransferItem](b.month, domain.DispatchTransfers) {
		tables = append(tables, Table{
			Title: "TRANSFERÊNCIA",
			Rows: []Row{
				fieldRow("Fazenda Origem", b.farm.Name),
				fieldRow("Fazenda Destino", b.farmName(entry.item.DestinationFarmID)),
				fieldRow("Número de animais", entry.item.AnimalCount),
				fieldRow("Categoria", entry.item.Category),
				fieldRow("Pasto de origem", entry.item.OriginPasture),
				fieldRow("Pasto destino", entry.item.DestinationPasture),
			},
		})
	}
	return tables
}

func (b *reportBuilder) reproduction() []Table {
	monthItems := items[domain.ReproductionItem](b.month, domain.DispatchReproductions)

	sum := func(accessor func(domain.ReproductionItem) string) float64 {
		var total float64
		for _, entry := range monthItems {
			total += parseNumber(accessor(entry.item))
		}
		return total
	}

	rows := []Row{
		summaryRow("Fêmeas Expostas", formatCount(sum(func(i domain.ReproductionItem) string { return i.AnimalCount }))),
		summaryRow("Fêmeas Inseminadas", formatCount(sum(func(i domain.ReproductionItem) string { return i.Inseminated }))),
		summaryRow("Fêmeas Diagnosticadas", formatCount(sum(func(i domain.ReproductionItem) string { return i.Diagnosed }))),
		summaryRow("Fêmeas Prenhas", formatCount(sum(func(i domain.ReproductionItem) string { return i.Pregnant }))),
		summaryRow("Fêmeas Vazias", formatCount(sum(func(i domain.ReproductionItem) string { return i.Empty }))),
	}
	var rate float64
	if len(monthItems) > 0 {
		rate = sum(func(i domain.ReproductionItem) string { return i.PregnancyRate }) / float64(len(monthItems))
	}
	rows = append(rows, summaryRow("Taxa de Prenhez (%)", formatWeight(rate)+"%"))
	return []Table{{Title: "REPRODUÇÕES", Columns: bucketColumns(), Rows: rows}}
}

func (b *reportBuilder) weaning() []Table {
	monthItems := items[domain.WeaningItem](b.month, domain.DispatchWeanings)

	section := func(title string, match func(domain.WeaningItem) bool) Table {
		var animals, weight float64
		for _, entry := range monthItems {
			if !match(entry.item) {
				continue
			}
			animals += parseNumber(entry.item.AnimalCount)
			weight += parseNumber(entry.item.TotalWeight)
		}
		var avg float64
		if animals > 0 {
			avg = weight / animals
		}
		return Table{Title: title, Columns: bucketColumns(), Rows: []Row{
			summaryRow("Animais desmamados", formatCount(animals)),
			summaryRow("Peso total (Kg)", formatWeight(weight)),
			summaryRow("Peso médio (Kg)", formatWeight(avg)),
		}}
	}

	return []Table{
		section("DESMAME", func(domain.WeaningItem) bool { return true }),
		section("Machos", func(item domain.WeaningItem) bool { return item.Sex == domain.SexMale }),
		section("Fêmeas", func(item domain.WeaningItem) bool { return item.Sex == domain.SexFemale }),
	}
}

func (b *reportBuilder) nutrition() []Table {
	var tables []Table
	for _, entry := range items[domain.NutritionItem](b.month, domain.DispatchNutrition) {
		tables = append(tables, Table{
			Title: "NUTRIÇÃO",
			Rows: []Row{
				fieldRow("Produto", entry.item.ProductName),
				fieldRow("Consumo total (Kg)", entry.item.TotalVolume),
				fieldRow("Lote", entry.item.Lot),
				fieldRow("Pasto", entry.item.Pasture),
			},
		})
	}
	return tables
}

func (b *reportBuilder) fertilization() []Table {
	var tables []Table
	for _, entry := range items[domain.FertilizationItem](b.month, domain.DispatchFertilization) {
		tables = append(tables, Table{
			Title: "ADUBAÇÃO",
			Rows: []Row{
				fieldRow("Pasto", entry.item.Pasture),
				fieldRow("Hectares", entry.item.Hectares),
				fieldRow("Fórmula (NPK)", entry.item.Formula),
				fieldRow("Densidade total (Kg)", entry.item.TotalQuantity),
				fieldRow("Densidade/há (kg)", entry.item.QuantityPerHectare),
				fieldRow("Valor total (R$)", "R$ "+entry.item.TotalPrice),
			},
		})
	}
	return tables
}

func (b *reportBuilder) pastureChange() []Table {
	var tables []Table
	for i, entry := range items[domain.PastureChangeItem](b.month, domain.DispatchPastureChanges) {
		tables = append(tables, Table{
			Title: fmt.Sprintf("Movimentação %d", i+1),
			Rows: []Row{
				fieldRow("Pasto de origem", entry.item.OriginPasture),
				fieldRow("Pasto destino", entry.item.DestinationPasture),
				fieldRow("Número de animais", entry.item.AnimalCount),
				fieldRow("Categoria", entry.item.Category),
				fieldRow("Lote", entry.item.Activity),
			},
		})
	}
	return tables
}

func (b *reportBuilder) categoryName(id string) string {
	for _, category := range b.categories {
		if category.ID == id {
			return category.Name
		}
	}
	return id
}

func (b *reportBuilder) categoryID(name string) (string, bool) {
	for _, category := range b.categories {
		if category.Name == name {
			return category.ID, true
		}
	}
	return "", false
}

// applyStockMovements replays purchase, sale, death, and birth items of the
// given protocols into the inventory map keyed by category id, scaled by sign.
// Transfers are left out, matching the farm's historical stock sheet.
func (b *reportBuilder) applyStockMovements(inventory map[string]int, protocols []Protocol, sign int) {
	adjust := func(name string, delta int) {
		if id, ok := b.categoryID(name); ok {
			inventory[id] += sign * delta
		}
	}
	for _, protocol := range protocols {
		for _, raw := range protocol.ProcessingDetails {
			switch item := raw.(type) {
			case domain.PurchaseItem:
				adjust(item.Category, parseCount(item.Quantity))
			case domain.SaleItem:
				adjust(item.Category, -parseCount(item.Quantity))
			case domain.DeathItem:
				adjust(item.Category, -1)
			case domain.BirthItem:
				name := calfFemaleName
				if item.Sex == domain.SexMale {
					name = calfMaleName
				}
				adjust(name, 1)
			}
		}
	}
}

func (b *reportBuilder) stockEvolution() []Table {
	// The farm distribution reflects every closed protocol, so the opening
	// stock backs out the movements from the month start onward.
	opening := make(map[string]int)
	for _, entry := range b.farm.AnimalDistribution {
		opening[entry.CategoryID] += entry.Quantity
	}
	monthStart := time.Date(b.filter.Year, b.filter.Month, 1, 0, 0, 0, 0, time.UTC)
	var since []Protocol
	for _, protocol := range b.all {
		if !protocolTime(protocol).Before(monthStart) {
			since = append(since, protocol)
		}
	}
	b.applyStockMovements(opening, since, -1)

	closing := make(map[string]int, len(opening))
	for id, qty := range opening {
		closing[id] = qty
	}
	b.applyStockMovements(closing, b.month, 1)

	categoryIDs := make([]string, 0, len(opening))
	for id := range opening {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Slice(categoryIDs, func(i, j int) bool {
		return b.categoryName(categoryIDs[i]) < b.categoryName(categoryIDs[j])
	})

	stockTable := func(title string, stock map[string]int) Table {
		rows := make([]Row, 0, len(categoryIDs)+1)
		total := 0
		for _, id := range categoryIDs {
			rows = append(rows, fieldRow(b.categoryName(id), strconv.Itoa(stock[id])))
			total += stock[id]
		}
		rows = append(rows, fieldRow("Soma", strconv.Itoa(total)))
		return Table{Title: title, Columns: []string{"Quantidade"}, Rows: rows}
	}

	evolution := Table{
		Title:   "Evolução",
		Columns: []string{"Nascimentos", "Compras", "E.Transferencia", "Vendas", "Mortes", "S.Transferencia", "Saldo"},
	}
	var totals [6]int
	for _, id := range categoryIDs {
		name := b.categoryName(id)
		var births, purchases, sales, deaths int
		for _, entry := range items[domain.BirthItem](b.month, domain.DispatchBirths) {
			calf := calfFemaleName
			if entry.item.Sex == domain.SexMale {
				calf = calfMaleName
			}
			if strings.Contains(name, calf) {
				births++
			}
		}
		for _, entry := range items[domain.PurchaseItem](b.month, domain.DispatchPurchases) {
			if entry.item.Category == name {
				purchases += parseCount(entry.item.Quantity)
			}
		}
		for _, entry := range items[domain.SaleItem](b.month, domain.DispatchSales) {
			if entry.item.Category == name {
				sales += parseCount(entry.item.Quantity)
			}
		}
		for _, entry := range items[domain.DeathItem](b.month, domain.DispatchDeaths) {
			if entry.item.Category == name {
				deaths++
			}
		}
		balance := births + purchases - sales - deaths
		totals[0] += births
		totals[1] += purchases
		totals[2] += sales
		totals[3] += deaths
		evolution.Rows = append(evolution.Rows, Row{Label: name, Cells: []string{
			strconv.Itoa(births),
			strconv.Itoa(purchases),
			"0",
			strconv.Itoa(sales),
			strconv.Itoa(deaths),
			"0",
			strconv.Itoa(balance),
		}})
	}
	netChange := totals[0] + totals[1] - totals[2] - totals[3]
	evolution.Rows = append(evolution.Rows, Row{Label: "Soma", Cells: []string{
		strconv.Itoa(totals[0]),
		strconv.Itoa(totals[1]),
		"0",
		strconv.Itoa(totals[2]),
		strconv.Itoa(totals[3]),
		"0",
		strconv.Itoa(netChange),
	}})

	return []Table{
		stockTable("Estoque dia 1 do mês", opening),
		evolution,
		stockTable("Estoque dia 30", closing),
	}
}
