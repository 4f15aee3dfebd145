package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	ended []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func TestServiceOperationsAreInstrumented(t *testing.T) {
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	log := &captureLogger{}

	svc, _ := newTestService(t,
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithLogger(log),
	)
	category, company, farm := seedFarm(t, svc)
	ctx := context.Background()

	if !audit.has("create_category", AuditStatusSuccess, func(entry AuditEntry) bool { return entry.EntityID == category.ID }) {
		t.Fatalf("expected audit entry for create_category success")
	}
	if !audit.has("create_company", AuditStatusSuccess, func(entry AuditEntry) bool { return entry.EntityID == company.ID }) {
		t.Fatalf("expected audit entry for create_company success")
	}

	if _, _, err := svc.UpdateFarm(ctx, farm.ID, func(f *Farm) error {
		f.City = "Pelotas"
		return nil
	}); err != nil {
		t.Fatalf("update farm: %v", err)
	}

	if _, err := svc.DeleteFarm(ctx, "missing-farm"); err == nil {
		t.Fatalf("expected delete_farm error for missing id")
	}
	if !audit.has("delete_farm", AuditStatusError, func(entry AuditEntry) bool { return entry.Error != "" }) {
		t.Fatalf("expected audit error entry for delete_farm")
	}
	if !metrics.has("delete_farm", false) {
		t.Fatalf("expected metrics entry for failed delete_farm")
	}
	if !tracer.has("delete_farm", false) {
		t.Fatalf("expected trace span for failed delete_farm")
	}

	for _, op := range []string{"create_category", "create_company", "create_farm", "update_farm"} {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success entry for %s", op)
		}
	}
	if len(log.calls) == 0 {
		t.Fatalf("expected logger to record calls")
	}
}

func TestAuditEntriesUseInjectedClock(t *testing.T) {
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	audit := &captureAuditRecorder{}
	svc, _ := newTestService(t,
		WithAuditRecorder(audit),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)
	if _, _, err := svc.CreateCategory(context.Background(), Category{Name: "Touro"}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if !entry.Timestamp.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, entry.Timestamp)
	}
	if entry.Entity != EntityCategory || entry.Action != ActionCreate {
		t.Fatalf("unexpected audit metadata: %+v", entry)
	}
}

func TestRecordAuditIgnoresUnknownOperation(t *testing.T) {
	audit := &captureAuditRecorder{}
	svc, _ := newTestService(t, WithAuditRecorder(audit))

	svc.recordAuditSuccess(context.Background(), "unknown_operation", "entity", time.Second)
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit entries for unknown operation, got %d", len(audit.entries))
	}
}

func TestNoopImplementations(t *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")

	var audit noopAuditRecorder
	audit.Record(context.Background(), AuditEntry{})

	var metrics noopMetricsRecorder
	metrics.Observe(context.Background(), "noop", true, 0)

	tracer := noopTracer{}
	ctx, span := tracer.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatalf("expected context from tracer")
	}
	span.End(nil)
}

const entryStatusSuccess = "success"
const entryStatusError = "error"

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "test_op", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "test_op", false, 5*time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["test_op"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["test_op"][entryStatusSuccess] != 1 || snapshot.Results["test_op"][entryStatusError] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}

	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "test_op") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "trace_op")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single span entry, got %d", len(entries))
	}
	if entries[0].Operation != "trace_op" || entries[0].Status != entryStatusSuccess {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), "\"operation\":\"trace_op\"") {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder, err := NewPrometheusMetricsRecorder(registry)
	if err != nil {
		t.Fatalf("new prometheus recorder: %v", err)
	}
	recorder.Observe(context.Background(), "close_protocol", true, 20*time.Millisecond)
	recorder.Observe(context.Background(), "close_protocol", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sawDurations, sawResults bool
	for _, family := range families {
		switch family.GetName() {
		case "herdbook_service_operation_duration_seconds":
			sawDurations = true
		case "herdbook_service_operation_results_total":
			sawResults = true
			var total float64
			for _, metric := range family.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
			if total != 2 {
				t.Fatalf("expected two result observations, got %v", total)
			}
		}
	}
	if !sawDurations || !sawResults {
		t.Fatalf("expected both metric families, got %+v", families)
	}
}
