package models

import (
	"strings"
	"time"
)

const DefaultCategoryColor = "#4f46e5"

type Category struct {
	ID             string    `json:"_id"`
	Name           string    `json:"categoryName"`
	NormalizedName string    `json:"-"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description,omitempty"`
	Color          string    `json:"color"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CategorySummary struct {
	ID    string `json:"_id"`
	Name  string `json:"categoryName"`
	Slug  string `json:"slug,omitempty"`
	Color string `json:"color,omitempty"`
}

func (c *Category) Summary() CategorySummary {
	return CategorySummary{ID: c.ID, Name: c.Name, Slug: c.Slug, Color: c.Color}
}

// NormalizeCategoryName is the key used for category uniqueness and lookup.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
