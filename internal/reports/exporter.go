// Package reports runs asynchronous report exports: aggregator tables are
// rendered to CSV and JSON artifacts and stored in a blob store.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"herdbook/internal/blob"
	"herdbook/internal/core"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportFormat selects an artifact encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportArtifact captures one stored report artifact.
type ExportArtifact struct {
	Key         string       `json:"key"`
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and its resulting artifacts.
type ExportRecord struct {
	ID          string            `json:"id"`
	Kind        core.ReportKind   `json:"kind"`
	Filter      core.ReportFilter `json:"filter"`
	Formats     []ExportFormat    `json:"formats"`
	Status      ExportStatus      `json:"status"`
	Error       string            `json:"error,omitempty"`
	Artifacts   []ExportArtifact  `json:"artifacts,omitempty"`
	RequestedBy string            `json:"requested_by"`
	Reason      string            `json:"reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Kind        core.ReportKind
	Filter      core.ReportFilter
	Formats     []ExportFormat
	RequestedBy string
	Reason      string
}

// AuditLog records export lifecycle entries.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures the audit trail metadata of one export transition.
type AuditEntry struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	Actor      string          `json:"actor"`
	Kind       core.ReportKind `json:"kind"`
	ExportID   string          `json:"export_id"`
	Status     ExportStatus    `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	Note       string          `json:"note,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Worker renders report exports asynchronously.
type Worker struct {
	service *core.Service
	store   blob.Store
	audit   AuditLog

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker over the given service and blob store.
// audit may be nil.
func NewWorker(service *core.Service, store blob.Store, audit AuditLog) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		service: service,
		store:   store,
		audit:   audit,
		queue:   make(chan exportTask, 32),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

func knownKind(kind core.ReportKind) bool {
	for _, k := range core.ReportKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// EnqueueExport validates the request, schedules it, and returns the queued
// record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if !knownKind(input.Kind) {
		return ExportRecord{}, fmt.Errorf("unknown report kind %q", input.Kind)
	}
	if input.Filter.FarmID == "" {
		return ExportRecord{}, fmt.Errorf("farm id required")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []ExportFormat{FormatCSV, FormatJSON}
	}
	uniq := make([]ExportFormat, 0, len(formats))
	seen := make(map[ExportFormat]struct{})
	for _, format := range formats {
		if format != FormatCSV && format != FormatJSON {
			return ExportRecord{}, fmt.Errorf("unsupported export format %s", format)
		}
		if _, dup := seen[format]; dup {
			continue
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Kind:        input.Kind,
		Filter:      input.Filter,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.record(ctx, id, ExportStatusQueued, "")

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.fail(id, "export queue full")
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.setStatus(task.id, ExportStatusRunning, "")
	w.record(w.ctx, task.id, ExportStatusRunning, "")

	report, err := w.service.GenerateReport(w.ctx, task.input.Kind, task.input.Filter)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("generate report: %v", err))
		return
	}

	formats := w.formatsFor(task.id)
	artifacts := make([]ExportArtifact, 0, len(formats))
	for _, format := range formats {
		payload, contentType, err := render(report, format)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		key := fmt.Sprintf("reports/%s/%s.%s", task.id, report.Kind, format)
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"export_id": task.id, "report": string(report.Kind)},
		})
		if err != nil {
			w.fail(task.id, fmt.Sprintf("store artifact: %v", err))
			return
		}
		artifacts = append(artifacts, ExportArtifact{
			Key:         info.Key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			URL:         info.URL,
			CreatedAt:   info.LastModified,
		})
	}

	w.complete(task.id, artifacts)
}

func render(report core.Report, format ExportFormat) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		for i, table := range report.Tables {
			if i > 0 {
				if err := writer.Write([]string{""}); err != nil {
					return nil, "", err
				}
			}
			if table.Title != "" {
				if err := writer.Write([]string{table.Title}); err != nil {
					return nil, "", err
				}
			}
			if len(table.Columns) > 0 {
				if err := writer.Write(append([]string{""}, table.Columns...)); err != nil {
					return nil, "", err
				}
			}
			for _, row := range table.Rows {
				if err := writer.Write(append([]string{row.Label}, row.Cells...)); err != nil {
					return nil, "", err
				}
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %s", format)
	}
}

func (w *Worker) setStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, ExportStatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.record(w.ctx, id, ExportStatusFailed, reason)
}

func (w *Worker) record(ctx context.Context, id string, status ExportStatus, note string) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	var actor, reason string
	var kind core.ReportKind
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		reason = record.Reason
		kind = record.Kind
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     "report_export",
		Actor:      actor,
		Kind:       kind,
		ExportID:   id,
		Status:     status,
		Reason:     reason,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (w *Worker) formatsFor(id string) []ExportFormat {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if record, ok := w.jobs[id]; ok {
		return append([]ExportFormat(nil), record.Formats...)
	}
	return nil
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ExportFormat(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	return dup
}
