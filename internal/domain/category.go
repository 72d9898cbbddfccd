package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a product category. Categories form a tree through ParentID.
type Category struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Description string     `json:"description" db:"description"`
	Image       string     `json:"image" db:"image"`
	Position    int        `json:"position" db:"position"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}
