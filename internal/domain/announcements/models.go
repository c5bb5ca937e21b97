package announcements

import (
	"fmt"
	"time"

	"hrdesk/internal/domain/domainerr"
)

const (
	AudienceAll        = "all"
	AudienceDepartment = "department"
	AudienceRole       = "role"
)

var Audiences = []string{AudienceAll, AudienceDepartment, AudienceRole}

var (
	ErrNotFound  = fmt.Errorf("announcement %w", domainerr.ErrNotFound)
	ErrForbidden = fmt.Errorf("announcement %w", domainerr.ErrForbidden)
)

type Announcement struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	AuthorID       string     `json:"authorId"`
	AuthorName     string     `json:"authorName,omitempty"`
	Audience       string     `json:"audience"`
	DepartmentID   *string    `json:"departmentId,omitempty"`
	DepartmentName string     `json:"departmentName,omitempty"`
	Role           *string    `json:"role,omitempty"`
	Pinned         bool       `json:"pinned"`
	PublishedAt    time.Time  `json:"publishedAt"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Input struct {
	Title        string
	Body         string
	Audience     string
	DepartmentID *string
	Role         *string
	Pinned       bool
	ExpiresAt    *time.Time
}

// Viewer restricts a listing to what one user may read.
type Viewer struct {
	UserID       string
	Role         string
	DepartmentID string
}

type Filter struct {
	Viewer         *Viewer
	AuthorID       string
	Audience       string
	IncludeExpired bool
}
