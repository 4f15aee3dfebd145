package core

import (
	"context"
	"fmt"

	"herdbook/pkg/domain"
)

// ProtocolTransitionRule blocks illegal protocol state transitions. A protocol
// is either open or closed, and closed is terminal.
func ProtocolTransitionRule() domain.Rule {
	return protocolTransitionRule{}
}

type protocolTransitionRule struct{}

func (protocolTransitionRule) Name() string { return "protocol_transition" }

func (protocolTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityProtocol {
			continue
		}
		switch change.Action {
		case domain.ActionCreate, domain.ActionUpdate:
			after, ok := change.After.(domain.Protocol)
			if !ok {
				continue
			}
			if after.Status != domain.ProtocolStatusOpen && after.Status != domain.ProtocolStatusClosed {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "protocol_transition",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("protocol %s has unknown status %q", after.ID, after.Status),
					Entity:   domain.EntityProtocol,
					EntityID: after.ID,
				})
				continue
			}
			if change.Action != domain.ActionUpdate {
				continue
			}
			before, ok := change.Before.(domain.Protocol)
			if !ok {
				continue
			}
			if before.Status == domain.ProtocolStatusClosed {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     "protocol_transition",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("protocol %s is closed; closed is a terminal state", after.ID),
					Entity:   domain.EntityProtocol,
					EntityID: after.ID,
				})
			}
		}
	}
	return result, nil
}
