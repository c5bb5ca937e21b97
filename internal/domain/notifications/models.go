package notifications

import (
	"fmt"
	"time"

	"hrdesk/internal/domain/domainerr"
)

var ErrNotFound = fmt.Errorf("notification %w", domainerr.ErrNotFound)

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Link      string     `json:"link,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Draft is the content of a notification before it has a recipient.
type Draft struct {
	Type  string
	Title string
	Body  string
	Link  string
}

type Message struct {
	To      string
	Subject string
	Body    string
}

type pushFrame struct {
	Event        string       `json:"event"`
	Notification Notification `json:"notification"`
}
