package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"herdbook/internal/infra/persistence/memory"
)

// Service exposes owner-scoped transactional operations over the herd
// records. Every operation is instrumented with the configured logger,
// metrics recorder, tracer, and audit recorder.
type Service struct {
	store   PersistentStore
	owner   string
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
}

// Option customizes service construction.
type Option func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder overrides the default no-op metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer overrides the default no-op tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder overrides the default no-op audit recorder.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithClock overrides the wall clock used for durations and audit timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a service bound to one owner over the supplied store.
func NewService(store PersistentStore, owner string, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		owner:   owner,
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine. A nil engine gets the default policy set.
func NewInMemoryService(engine *RulesEngine, owner string, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), owner, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Owner returns the owner identifier the service is scoped to.
func (s *Service) Owner() string {
	return s.owner
}

// ErrNotFound is returned when a record does not exist or belongs to another
// owner.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrProtocolClosed is returned when closing a protocol that already reached
// its terminal state.
type ErrProtocolClosed struct {
	ID string
}

func (e ErrProtocolClosed) Error() string {
	return fmt.Sprintf("protocol %s is already closed", e.ID)
}

// instrument wraps one service operation with tracing, metrics, logging, and
// the audit trail. fn returns the id of the touched entity for the audit
// entry.
func (s *Service) instrument(ctx context.Context, operation string, fn func(context.Context) (string, error)) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	s.logger.Debug("operation started", "operation", operation, "owner", s.owner)

	entityID, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
		s.recordAuditError(ctx, operation, entityID, err, duration)
		return err
	}
	s.logger.Info("operation completed", "operation", operation, "entity_id", entityID)
	s.recordAuditSuccess(ctx, operation, entityID, duration)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, err error, duration time.Duration) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Error:     err.Error(),
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// Ownership resolution follows the chain owner -> category/company,
// company -> farm, farm -> protocol.

func (s *Service) ownsCategory(view TransactionView, id string) (Category, bool) {
	category, ok := view.FindCategory(id)
	if !ok || category.OwnerID != s.owner {
		return Category{}, false
	}
	return category, true
}

func (s *Service) ownsCompany(view TransactionView, id string) (Company, bool) {
	company, ok := view.FindCompany(id)
	if !ok || company.OwnerID != s.owner {
		return Company{}, false
	}
	return company, true
}

func (s *Service) ownsFarm(view TransactionView, id string) (Farm, bool) {
	farm, ok := view.FindFarm(id)
	if !ok {
		return Farm{}, false
	}
	if _, ok := s.ownsCompany(view, farm.CompanyID); !ok {
		return Farm{}, false
	}
	return farm, true
}

func (s *Service) ownsProtocol(view TransactionView, id string) (Protocol, bool) {
	protocol, ok := view.FindProtocol(id)
	if !ok {
		return Protocol{}, false
	}
	if _, ok := s.ownsFarm(view, protocol.FarmID); !ok {
		return Protocol{}, false
	}
	return protocol, true
}

// CreateCategory registers a livestock category for the session owner.
func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, Result, error) {
	var created Category
	var res Result
	err := s.instrument(ctx, "create_category", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			category.OwnerID = s.owner
			var err error
			created, err = tx.CreateCategory(category)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateCategory mutates an owned category. Ownership cannot be moved.
func (s *Service) UpdateCategory(ctx context.Context, id string, mutator func(*Category) error) (Category, Result, error) {
	var updated Category
	var res Result
	err := s.instrument(ctx, "update_category", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsCategory(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityCategory, ID: id}
			}
			var err error
			updated, err = tx.UpdateCategory(id, func(c *Category) error {
				if err := mutator(c); err != nil {
					return err
				}
				c.OwnerID = s.owner
				return nil
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteCategory removes an owned category unless a farm distribution still
// references it.
func (s *Service) DeleteCategory(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_category", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsCategory(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityCategory, ID: id}
			}
			return tx.DeleteCategory(id)
		})
		return id, err
	})
	return res, err
}

// CreateCompany registers a company for the session owner.
func (s *Service) CreateCompany(ctx context.Context, company Company) (Company, Result, error) {
	var created Company
	var res Result
	err := s.instrument(ctx, "create_company", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			company.OwnerID = s.owner
			var err error
			created, err = tx.CreateCompany(company)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateCompany mutates an owned company. Ownership cannot be moved.
func (s *Service) UpdateCompany(ctx context.Context, id string, mutator func(*Company) error) (Company, Result, error) {
	var updated Company
	var res Result
	err := s.instrument(ctx, "update_company", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsCompany(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityCompany, ID: id}
			}
			var err error
			updated, err = tx.UpdateCompany(id, func(c *Company) error {
				if err := mutator(c); err != nil {
					return err
				}
				c.OwnerID = s.owner
				return nil
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteCompany removes an owned company unless a farm still references it.
func (s *Service) DeleteCompany(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_company", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsCompany(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityCompany, ID: id}
			}
			return tx.DeleteCompany(id)
		})
		return id, err
	})
	return res, err
}

// CreateFarm registers a farm under one of the owner's companies.
func (s *Service) CreateFarm(ctx context.Context, farm Farm) (Farm, Result, error) {
	var created Farm
	var res Result
	err := s.instrument(ctx, "create_farm", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsCompany(tx.Snapshot(), farm.CompanyID); !ok {
				return ErrNotFound{Entity: EntityCompany, ID: farm.CompanyID}
			}
			var err error
			created, err = tx.CreateFarm(farm)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateFarm mutates an owned farm. The farm may move between the owner's
// companies but not to another owner.
func (s *Service) UpdateFarm(ctx context.Context, id string, mutator func(*Farm) error) (Farm, Result, error) {
	var updated Farm
	var res Result
	err := s.instrument(ctx, "update_farm", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsFarm(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityFarm, ID: id}
			}
			var err error
			updated, err = tx.UpdateFarm(id, mutator)
			if err != nil {
				return err
			}
			if _, ok := s.ownsCompany(tx.Snapshot(), updated.CompanyID); !ok {
				return ErrNotFound{Entity: EntityCompany, ID: updated.CompanyID}
			}
			return nil
		})
		return id, err
	})
	return updated, res, err
}

// DeleteFarm removes an owned farm unless a protocol still references it.
func (s *Service) DeleteFarm(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_farm", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsFarm(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityFarm, ID: id}
			}
			return tx.DeleteFarm(id)
		})
		return id, err
	})
	return res, err
}

// CreateProtocol opens a dispatch protocol against an owned farm. The kind
// must be one of the known dispatch kinds; the generated code is immutable.
func (s *Service) CreateProtocol(ctx context.Context, farmID string, kind DispatchType, attachment Attachment) (Protocol, Result, error) {
	var created Protocol
	var res Result
	err := s.instrument(ctx, "create_protocol", func(ctx context.Context) (string, error) {
		if !kind.Known() {
			return "", fmt.Errorf("unknown dispatch kind %q", kind)
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsFarm(tx.Snapshot(), farmID); !ok {
				return ErrNotFound{Entity: EntityFarm, ID: farmID}
			}
			var err error
			created, err = tx.CreateProtocol(Protocol{
				Code:       newProtocolCode(kind),
				FarmID:     farmID,
				Type:       kind,
				Attachment: attachment,
				Status:     ProtocolStatusOpen,
			})
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// CloseProtocol moves an open protocol to its terminal state, attaches the
// processed line items, and reconciles farm inventory in the same
// transaction. Closure fires at most once per protocol.
func (s *Service) CloseProtocol(ctx context.Context, protocolID string, items LineItems) (Protocol, Result, error) {
	var closed Protocol
	var res Result
	err := s.instrument(ctx, "close_protocol", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			protocol, ok := s.ownsProtocol(tx.Snapshot(), protocolID)
			if !ok {
				return ErrNotFound{Entity: EntityProtocol, ID: protocolID}
			}
			if protocol.Status == ProtocolStatusClosed {
				return ErrProtocolClosed{ID: protocolID}
			}
			for _, item := range items {
				if item.Kind() != protocol.Type {
					return fmt.Errorf("line item kind %s does not match protocol kind %s", item.Kind(), protocol.Type)
				}
			}
			var err error
			closed, err = tx.UpdateProtocol(protocolID, func(p *Protocol) error {
				p.Status = ProtocolStatusClosed
				p.ProcessingDetails = items
				return nil
			})
			if err != nil {
				return err
			}
			return s.reconcileInventory(tx, closed.FarmID, items)
		})
		return protocolID, err
	})
	return closed, res, err
}

// DeleteProtocol removes an owned protocol record.
func (s *Service) DeleteProtocol(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.instrument(ctx, "delete_protocol", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, ok := s.ownsProtocol(tx.Snapshot(), id); !ok {
				return ErrNotFound{Entity: EntityProtocol, ID: id}
			}
			return tx.DeleteProtocol(id)
		})
		return id, err
	})
	return res, err
}

// GetCategory returns an owned category by id.
func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	var category Category
	err := s.store.View(ctx, func(view TransactionView) error {
		found, ok := s.ownsCategory(view, id)
		if !ok {
			return ErrNotFound{Entity: EntityCategory, ID: id}
		}
		category = found
		return nil
	})
	return category, err
}

// ListCategories returns the owner's categories ordered by creation time.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, category := range view.ListCategories() {
			if category.OwnerID == s.owner {
				out = append(out, category)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return baseBefore(out[i].Base, out[j].Base) })
	return out, err
}

// GetCompany returns an owned company by id.
func (s *Service) GetCompany(ctx context.Context, id string) (Company, error) {
	var company Company
	err := s.store.View(ctx, func(view TransactionView) error {
		found, ok := s.ownsCompany(view, id)
		if !ok {
			return ErrNotFound{Entity: EntityCompany, ID: id}
		}
		company = found
		return nil
	})
	return company, err
}

// ListCompanies returns the owner's companies ordered by creation time.
func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	var out []Company
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, company := range view.ListCompanies() {
			if company.OwnerID == s.owner {
				out = append(out, company)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return baseBefore(out[i].Base, out[j].Base) })
	return out, err
}

// GetFarm returns an owned farm by id.
func (s *Service) GetFarm(ctx context.Context, id string) (Farm, error) {
	var farm Farm
	err := s.store.View(ctx, func(view TransactionView) error {
		found, ok := s.ownsFarm(view, id)
		if !ok {
			return ErrNotFound{Entity: EntityFarm, ID: id}
		}
		farm = found
		return nil
	})
	return farm, err
}

// ListFarms returns the owner's farms ordered by creation time.
func (s *Service) ListFarms(ctx context.Context) ([]Farm, error) {
	var out []Farm
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, farm := range view.ListFarms() {
			if _, ok := s.ownsCompany(view, farm.CompanyID); ok {
				out = append(out, farm)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return baseBefore(out[i].Base, out[j].Base) })
	return out, err
}

// GetProtocol returns an owned protocol by id.
func (s *Service) GetProtocol(ctx context.Context, id string) (Protocol, error) {
	var protocol Protocol
	err := s.store.View(ctx, func(view TransactionView) error {
		found, ok := s.ownsProtocol(view, id)
		if !ok {
			return ErrNotFound{Entity: EntityProtocol, ID: id}
		}
		protocol = found
		return nil
	})
	return protocol, err
}

// ListProtocols returns the owner's protocols ordered by creation time.
func (s *Service) ListProtocols(ctx context.Context) ([]Protocol, error) {
	var out []Protocol
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, protocol := range view.ListProtocols() {
			if _, ok := s.ownsFarm(view, protocol.FarmID); ok {
				out = append(out, protocol)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return baseBefore(out[i].Base, out[j].Base) })
	return out, err
}

// OwnerRecords is the owner's full data set, one slice per collection, each
// ordered by creation time.
type OwnerRecords struct {
	Categories []Category `json:"categories"`
	Companies  []Company  `json:"companies"`
	Farms      []Farm     `json:"farms"`
	Protocols  []Protocol `json:"protocols"`
}

// Load returns every record belonging to the session owner in one consistent
// view.
func (s *Service) Load(ctx context.Context) (OwnerRecords, error) {
	var records OwnerRecords
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, category := range view.ListCategories() {
			if category.OwnerID == s.owner {
				records.Categories = append(records.Categories, category)
			}
		}
		for _, company := range view.ListCompanies() {
			if company.OwnerID == s.owner {
				records.Companies = append(records.Companies, company)
			}
		}
		for _, farm := range view.ListFarms() {
			if _, ok := s.ownsCompany(view, farm.CompanyID); ok {
				records.Farms = append(records.Farms, farm)
			}
		}
		for _, protocol := range view.ListProtocols() {
			if _, ok := s.ownsFarm(view, protocol.FarmID); ok {
				records.Protocols = append(records.Protocols, protocol)
			}
		}
		return nil
	})
	sort.Slice(records.Categories, func(i, j int) bool { return baseBefore(records.Categories[i].Base, records.Categories[j].Base) })
	sort.Slice(records.Companies, func(i, j int) bool { return baseBefore(records.Companies[i].Base, records.Companies[j].Base) })
	sort.Slice(records.Farms, func(i, j int) bool { return baseBefore(records.Farms[i].Base, records.Farms[j].Base) })
	sort.Slice(records.Protocols, func(i, j int) bool { return baseBefore(records.Protocols[i].Base, records.Protocols[j].Base) })
	return records, err
}

func baseBefore(a, b Base) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func newProtocolCode(kind DispatchType) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return kind.CodePrefix() + "-" + raw[:8]
}
