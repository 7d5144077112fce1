package entity

import "time"

// User is a read-only view of an account owned by the auth service
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name"`
	Role         string    `json:"role"`
	DepartmentID *int64    `json:"department_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the full name, or fallback when the user has none
func (u *User) DisplayName(fallback string) string {
	if u != nil && u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return fallback
}

// Department is reference data
type Department struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ReportType is reference data tying reports to a department
type ReportType struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	DepartmentID *int64  `json:"department_id"`
	Frequency    *string `json:"frequency"`
}

// Identity is the authenticated caller of a workflow operation
type Identity struct {
	UserID       int64
	Role         string
	DepartmentID *int64
	Email        string
	FullName     string
}

// HasRole reports whether the identity holds any of roles
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
