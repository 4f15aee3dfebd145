package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"herdbook/internal/blob"
	"herdbook/internal/core"
	"herdbook/internal/infra/persistence/memory"
	"herdbook/internal/infra/persistence/sqlite"
	"herdbook/internal/reports"
	"herdbook/pkg/domain"
)

// TestLifecycleSmoke runs the record-keeping cycle end to end over each
// storage variant: create the ownership chain, close a protocol with line
// items, check the reconciled inventory, and render a report export.
func TestLifecycleSmoke(t *testing.T) {
	variants := []struct {
		name string
		open func(t *testing.T) core.PersistentStore
	}{
		{
			name: "memory",
			open: func(_ *testing.T) core.PersistentStore {
				return memory.NewStore(core.NewDefaultRulesEngine())
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) core.PersistentStore {
				store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "herdbook.db"), core.NewDefaultRulesEngine())
				if err != nil {
					t.Fatalf("open sqlite store: %v", err)
				}
				t.Cleanup(func() {
					if err := store.Close(); err != nil {
						t.Errorf("close sqlite store: %v", err)
					}
				})
				return store
			},
		},
	}

	for _, variant := range variants {
		t.Run(variant.name, func(t *testing.T) {
			ctx := context.Background()
			store := variant.open(t)
			svc := core.NewService(store, "owner-1")

			category, _, err := svc.CreateCategory(ctx, core.Category{Name: "Boi"})
			if err != nil {
				t.Fatalf("create category: %v", err)
			}
			company, _, err := svc.CreateCompany(ctx, core.Company{Name: "Agro Ltda", City: "Bagé"})
			if err != nil {
				t.Fatalf("create company: %v", err)
			}
			farm, _, err := svc.CreateFarm(ctx, core.Farm{
				CompanyID:          company.ID,
				Name:               "Fazenda Norte",
				City:               "Bagé",
				AnimalDistribution: []core.CategoryCount{{CategoryID: category.ID, Quantity: 100}},
			})
			if err != nil {
				t.Fatalf("create farm: %v", err)
			}

			protocol, _, err := svc.CreateProtocol(ctx, farm.ID, domain.DispatchPurchases, core.Attachment{FileName: "nota.pdf", FileType: "application/pdf"})
			if err != nil {
				t.Fatalf("create protocol: %v", err)
			}
			if !strings.HasPrefix(protocol.Code, domain.DispatchPurchases.CodePrefix()) {
				t.Fatalf("unexpected protocol code %q", protocol.Code)
			}
			closed, _, err := svc.CloseProtocol(ctx, protocol.ID, core.LineItems{
				domain.PurchaseItem{Category: "Boi", Quantity: "10"},
			})
			if err != nil {
				t.Fatalf("close protocol: %v", err)
			}
			if closed.Status != core.ProtocolStatusClosed {
				t.Fatalf("protocol status = %s", closed.Status)
			}

			got, err := svc.GetFarm(ctx, farm.ID)
			if err != nil {
				t.Fatalf("get farm: %v", err)
			}
			if len(got.AnimalDistribution) != 1 || got.AnimalDistribution[0].Quantity != 110 {
				t.Fatalf("unexpected distribution after close: %+v", got.AnimalDistribution)
			}

			if _, _, err := svc.CloseProtocol(ctx, protocol.ID, nil); err == nil {
				t.Fatalf("expected second close to fail")
			}

			records, err := svc.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(records.Categories) != 1 || len(records.Companies) != 1 || len(records.Farms) != 1 || len(records.Protocols) != 1 {
				t.Fatalf("unexpected record counts: %+v", records)
			}
		})
	}
}

// TestSQLiteSurvivesReopen confirms the per-owner snapshot round-trips through
// a fresh store instance.
func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "herdbook.db")

	store, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	svc := core.NewService(store, "owner-1")
	category, _, err := svc.CreateCategory(ctx, core.Category{Name: "Touro"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := sqlite.NewStore(path, core.NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen sqlite store: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Errorf("close reopened store: %v", err)
		}
	}()
	svc2 := core.NewService(reopened, "owner-1")
	got, err := svc2.GetCategory(ctx, category.ID)
	if err != nil {
		t.Fatalf("get category after reopen: %v", err)
	}
	if got.Name != "Touro" {
		t.Fatalf("category name = %q after reopen", got.Name)
	}
}

// TestReportExportSmoke drives the export worker over a filesystem blob store.
func TestReportExportSmoke(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	svc := core.NewService(store, "owner-1")

	category, _, err := svc.CreateCategory(ctx, core.Category{Name: "Boi"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	company, _, err := svc.CreateCompany(ctx, core.Company{Name: "Agro Ltda", City: "Bagé"})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	farm, _, err := svc.CreateFarm(ctx, core.Farm{
		CompanyID:          company.ID,
		Name:               "Fazenda Norte",
		AnimalDistribution: []core.CategoryCount{{CategoryID: category.ID, Quantity: 50}},
	})
	if err != nil {
		t.Fatalf("create farm: %v", err)
	}
	at := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return at })
	protocol, _, err := svc.CreateProtocol(ctx, farm.ID, domain.DispatchSales, core.Attachment{})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}
	if _, _, err := svc.CloseProtocol(ctx, protocol.ID, core.LineItems{
		domain.SaleItem{Category: "Boi", Quantity: "5", TotalWeight: "2250", TotalPrice: "20250"},
	}); err != nil {
		t.Fatalf("close protocol: %v", err)
	}

	blobStore, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	worker := reports.NewWorker(svc, blobStore, nil)
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := worker.Stop(stopCtx); err != nil {
			t.Errorf("stop worker: %v", err)
		}
	}()

	queued, err := worker.EnqueueExport(ctx, reports.ExportInput{
		Kind:        core.ReportCommercialMovements,
		Filter:      core.ReportFilter{FarmID: farm.ID, Year: 2025, Month: time.March},
		RequestedBy: "owner-1",
	})
	if err != nil {
		t.Fatalf("enqueue export: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		record, ok := worker.GetExport(queued.ID)
		if !ok {
			t.Fatalf("export %s not found", queued.ID)
		}
		if record.Status == reports.ExportStatusSucceeded {
			if len(record.Artifacts) != 2 {
				t.Fatalf("expected 2 artifacts, got %+v", record.Artifacts)
			}
			break
		}
		if record.Status == reports.ExportStatusFailed {
			t.Fatalf("export failed: %s", record.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("export did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	infos, err := blobStore.List(ctx, "reports/"+queued.ID+"/")
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 stored artifacts, got %d", len(infos))
	}
}
