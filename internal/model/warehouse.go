package model

import "time"

// Warehouse is a location that holds items.
type Warehouse struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Location    string    `db:"location" json:"location"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Category groups item definitions.
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// ItemDefinition describes a kind of item (name, unit, category).
type ItemDefinition struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	CategoryID  int64     `db:"category_id" json:"categoryId"`
	Unit        string    `db:"unit" json:"unit"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`

	// Joined field (not always populated).
	Category *Category `db:"category" json:"category,omitempty"`
}

// QuickRemark is a canned remark offered to clients.
type QuickRemark struct {
	ID        int64     `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
