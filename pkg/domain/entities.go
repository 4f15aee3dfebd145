// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by herdbook.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCategory identifies a livestock category record.
	EntityCategory EntityType = "category"
	// EntityCompany identifies a company record.
	EntityCompany EntityType = "company"
	// EntityFarm identifies a farm record.
	EntityFarm EntityType = "farm"
	// EntityProtocol identifies a dispatch protocol record.
	EntityProtocol EntityType = "protocol"
)

// DispatchType enumerates the kinds of dispatch protocol an owner can submit.
type DispatchType string

// Canonical dispatch kinds. Each kind carries its own line item record shape
// and protocol code prefix.
const (
	DispatchPurchases      DispatchType = "purchases"
	DispatchSales          DispatchType = "sales"
	DispatchDeaths         DispatchType = "deaths"
	DispatchBirths         DispatchType = "births"
	DispatchTransfers      DispatchType = "transfers"
	DispatchReproductions  DispatchType = "reproductions"
	DispatchWeanings       DispatchType = "weanings"
	DispatchNutrition      DispatchType = "nutrition"
	DispatchFertilization  DispatchType = "fertilization"
	DispatchPastureChanges DispatchType = "pastureChanges"
)

var dispatchPrefixes = map[DispatchType]string{
	DispatchPurchases:      "COM",
	DispatchSales:          "VEN",
	DispatchDeaths:         "MOR",
	DispatchBirths:         "NAS",
	DispatchTransfers:      "TRA",
	DispatchReproductions:  "REP",
	DispatchWeanings:       "DES",
	DispatchNutrition:      "NUT",
	DispatchFertilization:  "FER",
	DispatchPastureChanges: "PAS",
}

// Known reports whether the dispatch type is one of the canonical kinds.
func (d DispatchType) Known() bool {
	_, ok := dispatchPrefixes[d]
	return ok
}

// CodePrefix returns the protocol code prefix for the dispatch type. Unknown
// kinds fall back to the generic "PRO" prefix.
func (d DispatchType) CodePrefix() string {
	if prefix, ok := dispatchPrefixes[d]; ok {
		return prefix
	}
	return "PRO"
}

// DispatchTypes returns the canonical dispatch kinds in declaration order.
func DispatchTypes() []DispatchType {
	return []DispatchType{
		DispatchPurchases,
		DispatchSales,
		DispatchDeaths,
		DispatchBirths,
		DispatchTransfers,
		DispatchReproductions,
		DispatchWeanings,
		DispatchNutrition,
		DispatchFertilization,
		DispatchPastureChanges,
	}
}

// ProtocolStatus enumerates the protocol lifecycle states.
type ProtocolStatus string

// Protocol lifecycle states. A protocol opens once and closes once; closed is
// terminal and triggers inventory reconciliation.
const (
	ProtocolStatusOpen   ProtocolStatus = "open"
	ProtocolStatusClosed ProtocolStatus = "closed"
)

// Sex values as captured on entry forms.
const (
	SexMale   = "Macho"
	SexFemale = "Fêmea"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category represents a livestock category an owner tracks inventory against.
type Category struct {
	Base
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

// Company represents a legal entity that operates farms.
type Company struct {
	Base
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	City    string `json:"city"`
}

// CategoryCount is one entry of a farm's animal distribution.
type CategoryCount struct {
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

// Farm is a physical property holding the per-category animal inventory.
// Ownership is inherited from the company.
type Farm struct {
	Base
	CompanyID          string          `json:"company_id"`
	Name               string          `json:"name"`
	City               string          `json:"city"`
	SizeHectares       float64         `json:"size_hectares"`
	ProductionSystem   string          `json:"production_system"`
	AnimalDistribution []CategoryCount `json:"animal_distribution"`
}

// Attachment is the document backing a protocol, embedded inline as a base64
// data URI.
type Attachment struct {
	FileName    string `json:"file_name"`
	FileContent string `json:"file_content"`
	FileType    string `json:"file_type"`
}

// Protocol represents a file-backed dispatch record moving through the
// open -> closed lifecycle. ProcessingDetails is populated at closure.
type Protocol struct {
	Base
	Code              string         `json:"code"`
	FarmID            string         `json:"farm_id"`
	Type              DispatchType   `json:"type"`
	Attachment        Attachment     `json:"attachment"`
	Status            ProtocolStatus `json:"status"`
	ProcessingDetails LineItems      `json:"processing_details"`
}

// Clone returns a deep copy of the farm.
func (f Farm) Clone() Farm {
	cloned := f
	if f.AnimalDistribution != nil {
		cloned.AnimalDistribution = append([]CategoryCount(nil), f.AnimalDistribution...)
	}
	return cloned
}

// Clone returns a deep copy of the protocol.
func (p Protocol) Clone() Protocol {
	cloned := p
	if p.ProcessingDetails != nil {
		cloned.ProcessingDetails = append(LineItems(nil), p.ProcessingDetails...)
	}
	return cloned
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
