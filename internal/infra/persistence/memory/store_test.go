package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"herdbook/pkg/domain"
)

func seedFarm(t *testing.T, store *Store) (Company, Farm) {
	t.Helper()
	var company Company
	var farm Farm
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		company, err = tx.CreateCompany(Company{OwnerID: "owner-1", Name: "Agro Norte", City: "Cuiabá"})
		if err != nil {
			return err
		}
		farm, err = tx.CreateFarm(Farm{CompanyID: company.ID, Name: "Santa Fé", City: "Cuiabá"})
		return err
	})
	if err != nil {
		t.Fatalf("seed farm: %v", err)
	}
	return company, farm
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })

	var created Category
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateCategory(Category{OwnerID: "owner-1", Name: "Vaca"})
		return err
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if !created.CreatedAt.Equal(fixed) || !created.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected timestamps %v, got %+v", fixed, created.Base)
	}
	if got, ok := store.GetCategory(created.ID); !ok || got.Name != "Vaca" {
		t.Fatalf("category not visible after commit: %+v ok=%v", got, ok)
	}
}

func TestFailedTransactionLeavesStateUntouched(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateCategory(Category{Name: "Vaca"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if got := store.ListCategories(); len(got) != 0 {
		t.Fatalf("rolled-back transaction leaked state: %v", got)
	}
}

func TestDeleteCategoryGuardedByFarmReference(t *testing.T) {
	store := NewStore(nil)
	var category Category
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		category, err = tx.CreateCategory(Category{OwnerID: "owner-1", Name: "Bezerro"})
		return err
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	_, farm := seedFarm(t, store)
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateFarm(farm.ID, func(f *Farm) error {
			f.AnimalDistribution = []domain.CategoryCount{{CategoryID: category.ID, Quantity: 4}}
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("assign distribution: %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteCategory(category.ID)
	})
	if err == nil || !strings.Contains(err.Error(), "still referenced") {
		t.Fatalf("expected reference guard error, got %v", err)
	}
	if _, ok := store.GetCategory(category.ID); !ok {
		t.Fatal("guarded delete must not remove the category")
	}
}

func TestDeleteCompanyGuardedByFarmReference(t *testing.T) {
	store := NewStore(nil)
	company, _ := seedFarm(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteCompany(company.ID)
	})
	if err == nil || !strings.Contains(err.Error(), "still referenced") {
		t.Fatalf("expected reference guard error, got %v", err)
	}
}

func TestDeleteFarmGuardedByProtocolReference(t *testing.T) {
	store := NewStore(nil)
	_, farm := seedFarm(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateProtocol(Protocol{FarmID: farm.ID, Type: domain.DispatchPurchases, Code: "COM-AAAA1111"})
		return err
	})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteFarm(farm.ID)
	})
	if err == nil || !strings.Contains(err.Error(), "still referenced") {
		t.Fatalf("expected reference guard error, got %v", err)
	}
}

func TestFarmDistributionPrunedOnWrite(t *testing.T) {
	store := NewStore(nil)
	_, farm := seedFarm(t, store)
	var updated Farm
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateFarm(farm.ID, func(f *Farm) error {
			f.AnimalDistribution = []domain.CategoryCount{
				{CategoryID: "cat-keep", Quantity: 3},
				{CategoryID: "cat-zero", Quantity: 0},
				{CategoryID: "cat-neg", Quantity: -2},
			}
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update farm: %v", err)
	}
	if len(updated.AnimalDistribution) != 1 || updated.AnimalDistribution[0].CategoryID != "cat-keep" {
		t.Fatalf("expected pruned distribution, got %v", updated.AnimalDistribution)
	}
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateCategory(Category{Name: "Vaca"})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("expected blocking result")
	}
	if got := store.ListCategories(); len(got) != 0 {
		t.Fatalf("blocked transaction leaked state: %v", got)
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block_all" }

func (blockAllRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	if len(changes) == 0 {
		return Result{}, nil
	}
	return Result{Violations: []domain.Violation{{Rule: "block_all", Severity: domain.SeverityBlock, Message: "blocked"}}}, nil
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore(nil)
	_, farm := seedFarm(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateProtocol(Protocol{
			FarmID: farm.ID,
			Type:   domain.DispatchDeaths,
			Code:   "MOR-BBBB2222",
			Status: domain.ProtocolStatusClosed,
			ProcessingDetails: domain.LineItems{
				domain.DeathItem{Category: "Vaca", Cause: "Raio"},
			},
		})
		return err
	})
	if err != nil {
		t.Fatalf("create protocol: %v", err)
	}

	restored := NewStore(nil)
	restored.ImportState(store.ExportState())

	protocols := restored.ListProtocols()
	if len(protocols) != 1 {
		t.Fatalf("expected 1 protocol after import, got %d", len(protocols))
	}
	if protocols[0].Status != domain.ProtocolStatusClosed {
		t.Fatalf("protocol status lost: %+v", protocols[0])
	}
	if len(protocols[0].ProcessingDetails) != 1 {
		t.Fatalf("processing details lost: %+v", protocols[0])
	}
}

func TestMigrateSnapshotDropsDanglingReferences(t *testing.T) {
	snapshot := Snapshot{
		Companies: map[string]Company{"co-1": {Base: domain.Base{ID: "co-1"}}},
		Farms: map[string]Farm{
			"farm-ok":     {Base: domain.Base{ID: "farm-ok"}, CompanyID: "co-1", AnimalDistribution: []domain.CategoryCount{{CategoryID: "c", Quantity: 0}}},
			"farm-orphan": {Base: domain.Base{ID: "farm-orphan"}, CompanyID: "co-missing"},
		},
		Protocols: map[string]Protocol{
			"pro-ok":     {Base: domain.Base{ID: "pro-ok"}, FarmID: "farm-ok"},
			"pro-orphan": {Base: domain.Base{ID: "pro-orphan"}, FarmID: "farm-orphan"},
		},
	}
	migrated := migrateSnapshot(snapshot)
	if migrated.Categories == nil {
		t.Fatal("nil category map should be initialised")
	}
	if _, ok := migrated.Farms["farm-orphan"]; ok {
		t.Fatal("farm with missing company should be dropped")
	}
	if _, ok := migrated.Protocols["pro-orphan"]; ok {
		t.Fatal("protocol with missing farm should be dropped")
	}
	if got := migrated.Farms["farm-ok"].AnimalDistribution; len(got) != 0 {
		t.Fatalf("zero-quantity entries should be pruned, got %v", got)
	}
	if migrated.Protocols["pro-ok"].Status != domain.ProtocolStatusOpen {
		t.Fatal("missing status should default to open")
	}
}

func TestViewSeesCommittedState(t *testing.T) {
	store := NewStore(nil)
	_, farm := seedFarm(t, store)
	err := store.View(context.Background(), func(view TransactionView) error {
		if _, ok := view.FindFarm(farm.ID); !ok {
			t.Fatal("farm missing from view")
		}
		if got := len(view.ListCompanies()); got != 1 {
			t.Fatalf("expected 1 company in view, got %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
