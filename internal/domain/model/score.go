// Package model defines the persisted domain records.
package model

// Score is the authoritative record of one user's current score. There is at
// most one Score per user; later submissions replace Value in place.
type Score struct {
	UserID string  `bson:"_id" json:"userId"`
	Value  float64 `bson:"value" json:"value"`
}
