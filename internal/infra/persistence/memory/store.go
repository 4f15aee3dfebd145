// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"herdbook/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Category aliases domain.Category for in-memory persistence operations.
	Category = domain.Category
	// Company aliases domain.Company.
	Company = domain.Company
	// Farm aliases domain.Farm.
	Farm = domain.Farm
	// Protocol aliases domain.Protocol.
	Protocol = domain.Protocol
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	categories map[string]Category
	companies  map[string]Company
	farms      map[string]Farm
	protocols  map[string]Protocol
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Categories map[string]Category `json:"categories"`
	Companies  map[string]Company  `json:"companies"`
	Farms      map[string]Farm     `json:"farms"`
	Protocols  map[string]Protocol `json:"protocols"`
}

func newMemoryState() memoryState {
	return memoryState{
		categories: make(map[string]Category),
		companies:  make(map[string]Company),
		farms:      make(map[string]Farm),
		protocols:  make(map[string]Protocol),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Categories: make(map[string]Category, len(state.categories)),
		Companies:  make(map[string]Company, len(state.companies)),
		Farms:      make(map[string]Farm, len(state.farms)),
		Protocols:  make(map[string]Protocol, len(state.protocols)),
	}
	for k, v := range state.categories {
		s.Categories[k] = v
	}
	for k, v := range state.companies {
		s.Companies[k] = v
	}
	for k, v := range state.farms {
		s.Farms[k] = v.Clone()
	}
	for k, v := range state.protocols {
		s.Protocols[k] = v.Clone()
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Categories {
		state.categories[k] = v
	}
	for k, v := range s.Companies {
		state.companies[k] = v
	}
	for k, v := range s.Farms {
		state.farms[k] = v.Clone()
	}
	for k, v := range s.Protocols {
		state.protocols[k] = v.Clone()
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable backends: nil maps
// become empty, dangling references are dropped, and farm distributions are
// pruned of non-positive quantities.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Categories == nil {
		snapshot.Categories = map[string]Category{}
	}
	if snapshot.Companies == nil {
		snapshot.Companies = map[string]Company{}
	}
	if snapshot.Farms == nil {
		snapshot.Farms = map[string]Farm{}
	}
	if snapshot.Protocols == nil {
		snapshot.Protocols = map[string]Protocol{}
	}

	companyExists := func(id string) bool {
		_, ok := snapshot.Companies[id]
		return ok
	}
	farmExists := func(id string) bool {
		_, ok := snapshot.Farms[id]
		return ok
	}

	for id, farm := range snapshot.Farms {
		if farm.CompanyID == "" || !companyExists(farm.CompanyID) {
			delete(snapshot.Farms, id)
			continue
		}
		farm.AnimalDistribution = pruneDistribution(farm.AnimalDistribution)
		snapshot.Farms[id] = farm
	}

	for id, protocol := range snapshot.Protocols {
		if protocol.FarmID == "" || !farmExists(protocol.FarmID) {
			delete(snapshot.Protocols, id)
			continue
		}
		if protocol.Status == "" {
			protocol.Status = domain.ProtocolStatusOpen
		}
		snapshot.Protocols[id] = protocol
	}

	return snapshot
}

func pruneDistribution(entries []domain.CategoryCount) []domain.CategoryCount {
	if len(entries) == 0 {
		return entries
	}
	out := make([]domain.CategoryCount, 0, len(entries))
	for _, entry := range entries {
		if entry.Quantity > 0 {
			out = append(out, entry)
		}
	}
	return out
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.categories {
		cloned.categories[k] = v
	}
	for k, v := range s.companies {
		cloned.companies[k] = v
	}
	for k, v := range s.farms {
		cloned.farms[k] = v.Clone()
	}
	for k, v := range s.protocols {
		cloned.protocols[k] = v.Clone()
	}
	return cloned
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider, primarily for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListCategories returns all categories within the transaction snapshot.
func (v transactionView) ListCategories() []Category {
	out := make([]Category, 0, len(v.state.categories))
	for _, c := range v.state.categories {
		out = append(out, c)
	}
	return out
}

// ListCompanies returns all companies within the transaction snapshot.
func (v transactionView) ListCompanies() []Company {
	out := make([]Company, 0, len(v.state.companies))
	for _, c := range v.state.companies {
		out = append(out, c)
	}
	return out
}

// ListFarms returns all farms within the transaction snapshot.
func (v transactionView) ListFarms() []Farm {
	out := make([]Farm, 0, len(v.state.farms))
	for _, f := range v.state.farms {
		out = append(out, f.Clone())
	}
	return out
}

// ListProtocols returns all protocols within the transaction snapshot.
func (v transactionView) ListProtocols() []Protocol {
	out := make([]Protocol, 0, len(v.state.protocols))
	for _, p := range v.state.protocols {
		out = append(out, p.Clone())
	}
	return out
}

// FindCategory retrieves a category by ID from the snapshot.
func (v transactionView) FindCategory(id string) (Category, bool) {
	c, ok := v.state.categories[id]
	return c, ok
}

// FindCompany retrieves a company by ID from the snapshot.
func (v transactionView) FindCompany(id string) (Company, bool) {
	c, ok := v.state.companies[id]
	return c, ok
}

// FindFarm retrieves a farm by ID from the snapshot.
func (v transactionView) FindFarm(id string) (Farm, bool) {
	f, ok := v.state.farms[id]
	if !ok {
		return Farm{}, false
	}
	return f.Clone(), true
}

// FindProtocol retrieves a protocol by ID from the snapshot.
func (v transactionView) FindProtocol(id string) (Protocol, bool) {
	p, ok := v.state.protocols[id]
	if !ok {
		return Protocol{}, false
	}
	return p.Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindCategory exposes category lookup within the transaction scope.
func (tx *transaction) FindCategory(id string) (Category, bool) {
	c, ok := tx.state.categories[id]
	return c, ok
}

// FindCompany exposes company lookup within the transaction scope.
func (tx *transaction) FindCompany(id string) (Company, bool) {
	c, ok := tx.state.companies[id]
	return c, ok
}

// FindFarm exposes farm lookup within the transaction scope.
func (tx *transaction) FindFarm(id string) (Farm, bool) {
	f, ok := tx.state.farms[id]
	if !ok {
		return Farm{}, false
	}
	return f.Clone(), true
}

// FindProtocol exposes protocol lookup within the transaction scope.
func (tx *transaction) FindProtocol(id string) (Protocol, bool) {
	p, ok := tx.state.protocols[id]
	if !ok {
		return Protocol{}, false
	}
	return p.Clone(), true
}

// CreateCategory stores a new category within the transaction.
func (tx *transaction) CreateCategory(c Category) (Category, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.categories[c.ID]; exists {
		return Category{}, fmt.Errorf("category %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.categories[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCategory, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCategory mutates a category using the provided mutator function.
func (tx *transaction) UpdateCategory(id string, mutator func(*Category) error) (Category, error) {
	current, ok := tx.state.categories[id]
	if !ok {
		return Category{}, fmt.Errorf("category %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Category{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.categories[id] = current
	tx.recordChange(Change{Entity: domain.EntityCategory, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteCategory removes a category unless a farm distribution still references it.
func (tx *transaction) DeleteCategory(id string) error {
	current, ok := tx.state.categories[id]
	if !ok {
		return fmt.Errorf("category %q not found", id)
	}
	for _, farm := range tx.state.farms {
		for _, entry := range farm.AnimalDistribution {
			if entry.CategoryID == id {
				return fmt.Errorf("category %q still referenced by farm %q", id, farm.ID)
			}
		}
	}
	delete(tx.state.categories, id)
	tx.recordChange(Change{Entity: domain.EntityCategory, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateCompany stores a new company.
func (tx *transaction) CreateCompany(c Company) (Company, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.companies[c.ID]; exists {
		return Company{}, fmt.Errorf("company %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.companies[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCompany, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCompany mutates an existing company.
func (tx *transaction) UpdateCompany(id string, mutator func(*Company) error) (Company, error) {
	current, ok := tx.state.companies[id]
	if !ok {
		return Company{}, fmt.Errorf("company %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Company{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.companies[id] = current
	tx.recordChange(Change{Entity: domain.EntityCompany, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteCompany removes a company unless a farm still references it.
func (tx *transaction) DeleteCompany(id string) error {
	current, ok := tx.state.companies[id]
	if !ok {
		return fmt.Errorf("company %q not found", id)
	}
	for _, farm := range tx.state.farms {
		if farm.CompanyID == id {
			return fmt.Errorf("company %q still referenced by farm %q", id, farm.ID)
		}
	}
	delete(tx.state.companies, id)
	tx.recordChange(Change{Entity: domain.EntityCompany, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateFarm stores a new farm. The distribution is pruned of non-positive
// quantities before commit.
func (tx *transaction) CreateFarm(f Farm) (Farm, error) {
	if f.ID == "" {
		f.ID = tx.store.newID()
	}
	if _, exists := tx.state.farms[f.ID]; exists {
		return Farm{}, fmt.Errorf("farm %q already exists", f.ID)
	}
	if f.CompanyID == "" {
		return Farm{}, fmt.Errorf("farm requires company id")
	}
	if _, ok := tx.state.companies[f.CompanyID]; !ok {
		return Farm{}, fmt.Errorf("company %q not found", f.CompanyID)
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	f.AnimalDistribution = pruneDistribution(f.AnimalDistribution)
	tx.state.farms[f.ID] = f.Clone()
	tx.recordChange(Change{Entity: domain.EntityFarm, Action: domain.ActionCreate, After: f.Clone()})
	return f.Clone(), nil
}

// UpdateFarm mutates an existing farm and re-prunes its distribution.
func (tx *transaction) UpdateFarm(id string, mutator func(*Farm) error) (Farm, error) {
	current, ok := tx.state.farms[id]
	if !ok {
		return Farm{}, fmt.Errorf("farm %q not found", id)
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return Farm{}, err
	}
	working.ID = id
	working.UpdatedAt = tx.now
	working.AnimalDistribution = pruneDistribution(working.AnimalDistribution)
	tx.state.farms[id] = working.Clone()
	tx.recordChange(Change{Entity: domain.EntityFarm, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

// DeleteFarm removes a farm unless a protocol still references it.
func (tx *transaction) DeleteFarm(id string) error {
	current, ok := tx.state.farms[id]
	if !ok {
		return fmt.Errorf("farm %q not found", id)
	}
	for _, protocol := range tx.state.protocols {
		if protocol.FarmID == id {
			return fmt.Errorf("farm %q still referenced by protocol %q", id, protocol.ID)
		}
	}
	delete(tx.state.farms, id)
	tx.recordChange(Change{Entity: domain.EntityFarm, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// CreateProtocol stores a new protocol.
func (tx *transaction) CreateProtocol(p Protocol) (Protocol, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.protocols[p.ID]; exists {
		return Protocol{}, fmt.Errorf("protocol %q already exists", p.ID)
	}
	if p.FarmID == "" {
		return Protocol{}, fmt.Errorf("protocol requires farm id")
	}
	if _, ok := tx.state.farms[p.FarmID]; !ok {
		return Protocol{}, fmt.Errorf("farm %q not found", p.FarmID)
	}
	if p.Status == "" {
		p.Status = domain.ProtocolStatusOpen
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.protocols[p.ID] = p.Clone()
	tx.recordChange(Change{Entity: domain.EntityProtocol, Action: domain.ActionCreate, After: p.Clone()})
	return p.Clone(), nil
}

// UpdateProtocol mutates an existing protocol.
func (tx *transaction) UpdateProtocol(id string, mutator func(*Protocol) error) (Protocol, error) {
	current, ok := tx.state.protocols[id]
	if !ok {
		return Protocol{}, fmt.Errorf("protocol %q not found", id)
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return Protocol{}, err
	}
	working.ID = id
	working.UpdatedAt = tx.now
	tx.state.protocols[id] = working.Clone()
	tx.recordChange(Change{Entity: domain.EntityProtocol, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

// DeleteProtocol removes a protocol from the transaction state.
func (tx *transaction) DeleteProtocol(id string) error {
	current, ok := tx.state.protocols[id]
	if !ok {
		return fmt.Errorf("protocol %q not found", id)
	}
	delete(tx.state.protocols, id)
	tx.recordChange(Change{Entity: domain.EntityProtocol, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// GetCategory returns a category by ID.
func (s *Store) GetCategory(id string) (Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.categories[id]
	return c, ok
}

// ListCategories returns all categories.
func (s *Store) ListCategories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		out = append(out, c)
	}
	return out
}

// GetCompany returns a company by ID.
func (s *Store) GetCompany(id string) (Company, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.companies[id]
	return c, ok
}

// ListCompanies returns all companies.
func (s *Store) ListCompanies() []Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Company, 0, len(s.state.companies))
	for _, c := range s.state.companies {
		out = append(out, c)
	}
	return out
}

// GetFarm returns a farm by ID.
func (s *Store) GetFarm(id string) (Farm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.farms[id]
	if !ok {
		return Farm{}, false
	}
	return f.Clone(), true
}

// ListFarms returns all farms.
func (s *Store) ListFarms() []Farm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Farm, 0, len(s.state.farms))
	for _, f := range s.state.farms {
		out = append(out, f.Clone())
	}
	return out
}

// GetProtocol returns a protocol by ID.
func (s *Store) GetProtocol(id string) (Protocol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.protocols[id]
	if !ok {
		return Protocol{}, false
	}
	return p.Clone(), true
}

// ListProtocols returns all protocols.
func (s *Store) ListProtocols() []Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Protocol, 0, len(s.state.protocols))
	for _, p := range s.state.protocols {
		out = append(out, p.Clone())
	}
	return out
}
