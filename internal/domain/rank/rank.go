// Package rank implements the two rank computations used by the service.
//
// The write path ranks a single user against the authoritative store right
// after their own upsert: users sharing a value share a rank. The read path
// assigns positional ranks to an already-ordered leaderboard slice, so equal
// scores get distinct adjacent ranks. The asymmetry is deliberate and
// documented on the functions below; changing either rule is a product
// decision, not a refactor.
package rank

import (
	"context"

	"github.com/solecism/podium/internal/domain/model"
	"github.com/solecism/podium/internal/domain/types"
)

// GreaterCounter counts stored records whose value strictly exceeds a given
// value. The authoritative store satisfies this.
type GreaterCounter interface {
	CountGreater(ctx context.Context, value float64) (int64, error)
}

// WritePath computes the rank returned from a score submission:
// one plus the number of stored values strictly greater than value. All users
// tied at the same value receive the same rank. Ranks previously reported for
// other users are not recomputed here; they catch up on their own next
// submission or on a leaderboard read.
func WritePath(ctx context.Context, counter GreaterCounter, value float64) (int, error) {
	higher, err := counter.CountGreater(ctx, value)
	if err != nil {
		return 0, err
	}
	return int(higher) + 1, nil
}

// Positional projects an ordered, score-descending sequence into leaderboard
// entries with ranks 1..len(scores). Ties get distinct adjacent ranks, in
// whatever tie order the sequence arrived with.
func Positional(scores []model.Score) []types.Entry {
	entries := make([]types.Entry, len(scores))
	for i, s := range scores {
		entries[i] = types.Entry{
			UserID: s.UserID,
			Score:  s.Value,
			Rank:   i + 1,
		}
	}
	return entries
}
