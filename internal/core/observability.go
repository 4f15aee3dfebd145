package core

import (
	"context"
	"time"

	"herdbook/pkg/domain"
)

// Logger captures the leveled, key-value logging surface used by the service.
// The default implementation discards everything.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder receives one observation per completed service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a single traced operation.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AuditStatus marks the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry is a single audit-trail record emitted for a mutating operation.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries. Implementations must be safe for
// concurrent use.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type operationMetadata struct {
	entity EntityType
	action Action
}

// auditOperations maps operation names to the entity and action recorded in
// the audit trail. Operations absent from the map are not audited.
var auditOperations = map[string]operationMetadata{
	"create_category": {entity: domain.EntityCategory, action: domain.ActionCreate},
	"update_category": {entity: domain.EntityCategory, action: domain.ActionUpdate},
	"delete_category": {entity: domain.EntityCategory, action: domain.ActionDelete},
	"create_company":  {entity: domain.EntityCompany, action: domain.ActionCreate},
	"update_company":  {entity: domain.EntityCompany, action: domain.ActionUpdate},
	"delete_company":  {entity: domain.EntityCompany, action: domain.ActionDelete},
	"create_farm":     {entity: domain.EntityFarm, action: domain.ActionCreate},
	"update_farm":     {entity: domain.EntityFarm, action: domain.ActionUpdate},
	"delete_farm":     {entity: domain.EntityFarm, action: domain.ActionDelete},
	"create_protocol": {entity: domain.EntityProtocol, action: domain.ActionCreate},
	"close_protocol":  {entity: domain.EntityProtocol, action: domain.ActionUpdate},
	"delete_protocol": {entity: domain.EntityProtocol, action: domain.ActionDelete},
}
