// Package dbtypes holds the record types that FlowerPress persists in
// Firestore.
package dbtypes

import (
	"time"
)

// Category classifies where a flower was collected.
type Category string

const (
	CategoryGarden Category = "garden"
	CategoryWild   Category = "wild"
	CategoryHerbs  Category = "herbs"
)

// Categories lists every valid category, in display order.
var Categories = []Category{CategoryGarden, CategoryWild, CategoryHerbs}

// ValidCategory reports whether c is one of the closed category set.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// BackgroundType says how a flower's overlay background is sourced.
type BackgroundType string

const (
	BackgroundNone   BackgroundType = "none"
	BackgroundPreset BackgroundType = "preset"
	BackgroundCustom BackgroundType = "custom"
)

// Background describes the overlay rendered behind a flower image.
//
// Value is a preset key for BackgroundPreset, and a blob URI for
// BackgroundCustom.  It must be non-empty whenever Type is not
// BackgroundNone.
type Background struct {
	Type  BackgroundType `firestore:"type"`
	Value string         `firestore:"value,omitempty"`
}

// PresetBackgrounds maps preset keys to the image paths served as static
// content.
var PresetBackgrounds = map[string]string{
	"paper1":        "/paper1.jpeg",
	"paper2":        "/paper2.jpg",
	"anna-karenina": "/anna-karenina.jpg",
	"rabbits":       "/rabbits.jpg",
}

// DefaultAspectRatio is assumed for records stored without an aspect ratio.
const DefaultAspectRatio = 1.33

// Flower is one pressed-flower entry in a user's gallery.
type Flower struct {
	// ID is assigned by Firestore at creation and never mutated.
	ID string `firestore:"-"`

	ImageURL    string     `firestore:"imageUrl"`
	Note        string     `firestore:"note"`
	DateTaken   time.Time  `firestore:"dateTaken"`
	Category    Category   `firestore:"category"`
	AspectRatio float64    `firestore:"aspectRatio"`
	Background  Background `firestore:"background"`
	UserID      string     `firestore:"userId"`

	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp"`
}

// UserProfile is the display metadata we keep for a signed-in user, keyed by
// the identity provider's stable ID.
type UserProfile struct {
	ID           string    `firestore:"-"`
	Email        string    `firestore:"email,omitempty"`
	DisplayName  string    `firestore:"displayName,omitempty"`
	PhotoURL     string    `firestore:"photoURL,omitempty"`
	PasswordHash string    `firestore:"passwordHash,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	LastLoginAt  time.Time `firestore:"lastLoginAt"`
}

// Session represents a log-in session for a user.
type Session struct {
	Cookie  string    `firestore:"cookie"`
	UserID  string    `firestore:"userId"`
	Expires time.Time `firestore:"expires"`
}
