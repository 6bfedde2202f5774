package models

import (
	"strings"
	"time"
)

// Condition describes whether a product is sold new or used.
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionUsed Condition = "used"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	return c == ConditionNew || c == ConditionUsed
}

// OrDefault returns c, or ConditionNew when c is empty.
func (c Condition) OrDefault() Condition {
	if c == "" {
		return ConditionNew
	}
	return c
}

// Product represents a product in the store.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NameLowercase string    `json:"nameLowercase"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	ImageURL      string    `json:"imageUrl"`
	Images        []string  `json:"images"`
	Category      string    `json:"category"`
	Featured      bool      `json:"featured"`
	Stock         int       `json:"stock"`
	Condition     Condition `json:"condition"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProductUpdate carries a partial product write. Nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	ImageURL    *string
	Images      *[]string
	Category    *string
	Featured    *bool
	Stock       *int
	Condition   *Condition
}

// Apply writes the present fields of u onto p and keeps the search key in sync.
// Timestamps are left to the store.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
		p.NameLowercase = LowercaseName(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.Images != nil {
		p.Images = append([]string{}, (*u.Images)...)
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Condition != nil {
		p.Condition = *u.Condition
	}
}

// ProductFilter selects products by equality on the optional fields.
type ProductFilter struct {
	Featured  *bool
	Category  string
	Condition Condition
}

// Matches reports whether p satisfies every set field of f.
func (f ProductFilter) Matches(p Product) bool {
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Condition != "" && p.Condition != f.Condition {
		return false
	}
	return true
}

// SearchKeyCeiling is appended to a search term to build the exclusive upper bound
// of a prefix range scan.
const SearchKeyCeiling = "\uf8ff"

// LowercaseName derives the search key stored next to a product name.
func LowercaseName(name string) string {
	return strings.ToLower(name)
}

// SearchKeys returns the word-start suffixes of the lowercase name. The first key is
// always LowercaseName(name), so a range scan over the keys is a "starts with" match
// against the whole name or any word inside it.
func SearchKeys(name string) []string {
	lower := LowercaseName(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	keys := []string{lower}
	seen := map[string]bool{lower: true}
	words := strings.Fields(lower)
	for i := 1; i < len(words); i++ {
		suffix := strings.Join(words[i:], " ")
		if !seen[suffix] {
			seen[suffix] = true
			keys = append(keys, suffix)
		}
	}
	return keys
}

// MatchesPrefix reports whether key lies in the range [term, term+SearchKeyCeiling).
func MatchesPrefix(key, term string) bool {
	return key >= term && key < term+SearchKeyCeiling
}

// ParseImageList splits comma-separated image URLs, trimming each entry and dropping
// empty ones. It never returns nil.
func ParseImageList(text string) []string {
	images := []string{}
	for _, part := range strings.Split(text, ",") {
		if url := strings.TrimSpace(part); url != "" {
			images = append(images, url)
		}
	}
	return images
}
