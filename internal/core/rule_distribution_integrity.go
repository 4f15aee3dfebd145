package core

import (
	"context"
	"fmt"

	"herdbook/pkg/domain"
)

// DistributionIntegrityRule flags farm writes whose animal distribution
// references a category that does not exist (warn, since birth
// reconciliation may fall back to a literal category name) and blocks
// non-positive quantities. The store prunes non-positive entries on write,
// so the quantity branch only fires when a driver bypasses normalization.
func DistributionIntegrityRule() domain.Rule {
	return distributionIntegrityRule{}
}

type distributionIntegrityRule struct{}

func (distributionIntegrityRule) Name() string { return "distribution_integrity" }

func (distributionIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityFarm {
			continue
		}
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		farm, ok := change.After.(domain.Farm)
		if !ok {
			continue
		}
		for _, entry := range farm.AnimalDistribution {
			if _, ok := view.FindCategory(entry.CategoryID); !ok {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "distribution_integrity",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("farm %s distribution references unknown category %s", farm.ID, entry.CategoryID),
					Entity:   domain.EntityFarm,
					EntityID: farm.ID,
				})
			}
			if entry.Quantity <= 0 {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "distribution_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("farm %s distribution holds non-positive quantity for category %s", farm.ID, entry.CategoryID),
					Entity:   domain.EntityFarm,
					EntityID: farm.ID,
				})
			}
		}
	}
	return result, nil
}
