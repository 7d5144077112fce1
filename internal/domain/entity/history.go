package entity

import "time"

// ReviewHistory is one append-only record of a review or approval action
type ReviewHistory struct {
	ID         int64     `json:"id"`
	ReportID   int64     `json:"report_id"`
	ReviewerID int64     `json:"reviewer_id"`
	Action     string    `json:"action"`
	Comments   *string   `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
}
