package core

import "herdbook/pkg/domain"

type (
	EntityType         = domain.EntityType
	DispatchType       = domain.DispatchType
	ProtocolStatus     = domain.ProtocolStatus
	Severity           = domain.Severity
	Base               = domain.Base
	Category           = domain.Category
	Company            = domain.Company
	Farm               = domain.Farm
	CategoryCount      = domain.CategoryCount
	Attachment         = domain.Attachment
	Protocol           = domain.Protocol
	LineItem           = domain.LineItem
	LineItems          = domain.LineItems
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
)

const (
	EntityCategory = domain.EntityCategory
	EntityCompany  = domain.EntityCompany
	EntityFarm     = domain.EntityFarm
	EntityProtocol = domain.EntityProtocol
)

const (
	ProtocolStatusOpen   = domain.ProtocolStatusOpen
	ProtocolStatusClosed = domain.ProtocolStatusClosed
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
