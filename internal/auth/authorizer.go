package auth

import (
	"fmt"

	"github.com/senyabanana/tender-engine/internal/models"
)

// Action - операция, для которой проверяется право доступа.
type Action string

const (
	CreateTender       Action = "tender.create"
	ListTenders        Action = "tender.list"
	ViewTender         Action = "tender.view"
	ChangeTenderStatus Action = "tender.status"
	AwardTender        Action = "tender.award"

	SubmitBid          Action = "bid.submit"
	ListBids           Action = "bid.list"
	ListContractorBids Action = "bid.list_by_contractor"

	ProcessPayment         Action = "payment.process"
	ClearPaymentHistory    Action = "payment.clear"
	ListPayments           Action = "payment.list"
	ListContractorPayments Action = "payment.list_by_contractor"

	SubmitVerification       Action = "verification.submit"
	ViewOwnVerification      Action = "verification.view_own"
	ListVerificationRequests Action = "verification.list"
	ReviewVerification       Action = "verification.review"
	SetVerificationStatus    Action = "verification.override"

	ListContractors          Action = "contractor.list"
	ViewContractor           Action = "contractor.view"
	UpdateContractor         Action = "contractor.update"
	DeleteContractor         Action = "contractor.delete"
	RateContractor           Action = "contractor.rate"
	ViewVerificationOverview Action = "contractor.overview"
)

// Permission - роли, которым разрешено действие, и разрешено ли оно владельцу ресурса.
type Permission struct {
	Roles      []models.Role
	AllowOwner bool
}

var (
	anyone = []models.Role{models.AdminRole, models.VerifierRole, models.ContractorRole, models.PublicRole}
	admin  = []models.Role{models.AdminRole}
	staff  = []models.Role{models.AdminRole, models.VerifierRole}
)

// permissions - единая таблица прав доступа.
var permissions = map[Action]Permission{
	CreateTender:       {Roles: admin},
	ListTenders:        {Roles: anyone},
	ViewTender:         {Roles: anyone},
	ChangeTenderStatus: {Roles: admin},
	AwardTender:        {Roles: admin},

	SubmitBid:          {Roles: []models.Role{models.ContractorRole}},
	ListBids:           {Roles: []models.Role{models.AdminRole, models.VerifierRole, models.ContractorRole}},
	ListContractorBids: {Roles: staff, AllowOwner: true},

	ProcessPayment:         {Roles: admin},
	ClearPaymentHistory:    {Roles: admin},
	ListPayments:           {Roles: admin},
	ListContractorPayments: {Roles: staff, AllowOwner: true},

	SubmitVerification:       {Roles: []models.Role{models.ContractorRole}},
	ViewOwnVerification:      {Roles: []models.Role{models.ContractorRole}},
	ListVerificationRequests: {Roles: staff},
	ReviewVerification:       {Roles: staff},
	SetVerificationStatus:    {Roles: staff},

	ListContractors:          {Roles: staff},
	ViewContractor:           {Roles: staff, AllowOwner: true},
	UpdateContractor:         {Roles: staff, AllowOwner: true},
	DeleteContractor:         {Roles: admin},
	RateContractor:           {Roles: staff},
	ViewVerificationOverview: {Roles: staff},
}

// Decision - результат проверки прав.
type Decision struct {
	Allowed bool
	Reason  string
}

// Authorize проверяет право роли на действие. Неизвестное действие запрещено.
func Authorize(p models.Principal, action Action) Decision {
	permission, ok := permissions[action]
	if !ok {
		return deny("unknown action %s", action)
	}
	if hasRole(permission.Roles, p.Role) {
		return Decision{Allowed: true}
	}
	return deny("role %q may not perform %s", p.Role, action)
}

// AuthorizeOwner дополнительно разрешает действие владельцу ресурса, если таблица это допускает.
func AuthorizeOwner(p models.Principal, action Action, ownerID string) Decision {
	decision := Authorize(p, action)
	if decision.Allowed {
		return decision
	}
	if permissions[action].AllowOwner && p.ID != "" && p.ID == ownerID {
		return Decision{Allowed: true}
	}
	return decision
}

// Permissions возвращает копию таблицы прав.
func Permissions() map[Action]Permission {
	table := make(map[Action]Permission, len(permissions))
	for action, permission := range permissions {
		table[action] = permission
	}
	return table
}

func hasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func deny(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}
