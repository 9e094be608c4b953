// Package types contains common types used across the application.
package types

// Entry is one leaderboard row as presented to clients. It is ephemeral,
// recomputed per read; the rank rule depends on the path that produced it.
type Entry struct {
	UserID string  `json:"userId"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}
