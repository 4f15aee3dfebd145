package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateCategory(Category) (Category, error)
	UpdateCategory(id string, mutator func(*Category) error) (Category, error)
	DeleteCategory(id string) error
	CreateCompany(Company) (Company, error)
	UpdateCompany(id string, mutator func(*Company) error) (Company, error)
	DeleteCompany(id string) error
	CreateFarm(Farm) (Farm, error)
	UpdateFarm(id string, mutator func(*Farm) error) (Farm, error)
	DeleteFarm(id string) error
	CreateProtocol(Protocol) (Protocol, error)
	UpdateProtocol(id string, mutator func(*Protocol) error) (Protocol, error)
	DeleteProtocol(id string) error
	FindCategory(id string) (Category, bool)
	FindCompany(id string) (Company, bool)
	FindFarm(id string) (Farm, bool)
	FindProtocol(id string) (Protocol, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// service reads.
type TransactionView interface {
	ListCategories() []Category
	ListCompanies() []Company
	ListFarms() []Farm
	ListProtocols() []Protocol
	FindCategory(id string) (Category, bool)
	FindCompany(id string) (Company, bool)
	FindFarm(id string) (Farm, bool)
	FindProtocol(id string) (Protocol, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCategory(id string) (Category, bool)
	ListCategories() []Category
	GetCompany(id string) (Company, bool)
	ListCompanies() []Company
	GetFarm(id string) (Farm, bool)
	ListFarms() []Farm
	GetProtocol(id string) (Protocol, bool)
	ListProtocols() []Protocol
}
