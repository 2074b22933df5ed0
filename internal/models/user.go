package models

// UserRole represents the roles recognised by the admissions RBAC rules.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleReviewer     UserRole = "REVIEWER"
	RoleEvaluator    UserRole = "EVALUATOR"
	RoleFeeCollector UserRole = "FEE_COLLECTOR"
	RoleStudent      UserRole = "STUDENT"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
