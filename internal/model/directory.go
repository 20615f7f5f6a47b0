// Package model defines the directory records shared by the importer, the
// stores, and the HTTP/CLI surfaces.
package model

import "strings"

// State is a top-level region that owns cities.
type State struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// City is a city record owned by a state. Within one state the normalized
// name is unique.
type City struct {
	ID      string `json:"id"`
	StateID string `json:"state_id"`
	Name    string `json:"name"`
}

// NameKey returns the key the stores use for the (state_id, name_key)
// uniqueness constraint.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Listing is a business listing placed under a city.
type Listing struct {
	ID       string  `json:"id"`
	CityID   string  `json:"city_id"`
	Business string  `json:"business"`
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
	Reviews  int     `json:"reviews"`
	Address  string  `json:"address"`
	Website  string  `json:"website"`
	Phone    string  `json:"phone"`
	Email    string  `json:"email"`
	Featured bool    `json:"featured"`
}

// HasContact reports whether the listing carries a phone number or a website.
func (l Listing) HasContact() bool {
	return strings.TrimSpace(l.Phone) != "" || strings.TrimSpace(l.Website) != ""
}
