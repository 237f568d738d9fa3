package types

import (
	"fmt"
	"strings"
	"time"
)

// Item represents a tracked piece of work: a bug report or a feature request
type Item struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	CategoryID string   `json:"category_id"`
	Type       ItemType `json:"type"`
	Status     Status   `json:"status"`
	// CategoryName is filled in by the store when it joins the category row.
	// Nil means the store did not resolve it.
	CategoryName *string   `json:"category_name,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks if the item has valid field values
func (i *Item) Validate() error {
	if len(i.Title) == 0 {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if strings.TrimSpace(i.CategoryID) == "" {
		return fmt.Errorf("category_id is required")
	}
	if !i.Type.IsValid() {
		return fmt.Errorf("invalid item type: %s", i.Type)
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	return nil
}

// ItemType says which changelog section a finished item belongs to
type ItemType string

const (
	TypeBug           ItemType = "bug"
	TypeFeatureUpdate ItemType = "feature_update"
	TypeNewFeature    ItemType = "new_feature"
)

// ItemTypes lists the recognized item types in changelog section order
var ItemTypes = []ItemType{TypeBug, TypeNewFeature, TypeFeatureUpdate}

// IsValid checks if the item type value is valid
func (t ItemType) IsValid() bool {
	switch t {
	case TypeBug, TypeFeatureUpdate, TypeNewFeature:
		return true
	}
	return false
}

// Status represents the lifecycle state of an item
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Values written by the first version of the web client.
const (
	legacyStatusPending    = "belum"
	legacyStatusInProgress = "proses"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseStatus converts user input into a canonical Status.
// Legacy client values are accepted and mapped.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case legacyStatusPending:
		return StatusPending, nil
	case legacyStatusInProgress:
		return StatusInProgress, nil
	}
	status := Status(v)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status: %q", s)
	}
	return status, nil
}

// Category groups items, e.g. "Checkout" or "Mobile app"
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate trims the name and checks the category fields
func (c *Category) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("category name is required")
	}
	if len(c.Name) > 100 {
		return fmt.Errorf("category name must be 100 characters or less (got %d)", len(c.Name))
	}
	return nil
}

// Event represents an audit trail entry
type Event struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType categorizes audit trail events
type EventType string

const (
	EventCreated       EventType = "created"
	EventStatusChanged EventType = "status_changed"
	EventDeleted       EventType = "deleted"
)

// Statistics provides aggregate counts over all items
type Statistics struct {
	TotalItems      int              `json:"total_items"`
	PendingItems    int              `json:"pending_items"`
	InProgressItems int              `json:"in_progress_items"`
	DoneItems       int              `json:"done_items"`
	TotalCategories int              `json:"total_categories"`
	ByType          map[ItemType]int `json:"by_type"`
}

// ItemFilter is used to filter item queries
type ItemFilter struct {
	Type       *ItemType
	Status     *Status
	CategoryID *string
	Limit      int
}
