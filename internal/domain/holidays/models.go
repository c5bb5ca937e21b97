package holidays

import (
	"fmt"
	"time"

	"hrdesk/internal/domain/domainerr"
)

var ErrNotFound = fmt.Errorf("holiday %w", domainerr.ErrNotFound)

type Holiday struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Input struct {
	Name        string
	Date        time.Time
	Description string
}
