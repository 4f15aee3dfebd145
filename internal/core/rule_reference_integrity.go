package core

import (
	"context"
	"fmt"

	"herdbook/pkg/domain"
)

// ReferenceIntegrityRule blocks writes whose foreign references do not
// resolve: a farm must point at an existing company and a protocol at an
// existing farm.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		switch change.Entity {
		case domain.EntityFarm:
			farm, ok := change.After.(domain.Farm)
			if !ok {
				continue
			}
			if _, ok := view.FindCompany(farm.CompanyID); !ok {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "reference_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("farm %s references unknown company %s", farm.ID, farm.CompanyID),
					Entity:   domain.EntityFarm,
					EntityID: farm.ID,
				})
			}
		case domain.EntityProtocol:
			protocol, ok := change.After.(domain.Protocol)
			if !ok {
				continue
			}
			if _, ok := view.FindFarm(protocol.FarmID); !ok {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "reference_integrity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("protocol %s references unknown farm %s", protocol.ID, protocol.FarmID),
					Entity:   domain.EntityProtocol,
					EntityID: protocol.ID,
				})
			}
		}
	}
	return result, nil
}
