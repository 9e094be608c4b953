package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solecism/podium/internal/adapters/cache"
	"github.com/solecism/podium/internal/adapters/repository"
	service "github.com/solecism/podium/internal/app"
	"github.com/solecism/podium/internal/domain/model"
	"github.com/solecism/podium/internal/domain/types"
	"github.com/solecism/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// downCache fails every operation, simulating an unreachable cache backend.
type downCache struct{}

func (downCache) RebuildFrom(context.Context, []model.Score) error { return cache.ErrUnavailable }
func (downCache) Upsert(context.Context, string, float64) error    { return cache.ErrUnavailable }
func (downCache) TopN(context.Context, int) ([]model.Score, error) {
	return nil, cache.ErrUnavailable
}
func (downCache) SetExpiry(context.Context, time.Duration) error { return cache.ErrUnavailable }

// capturingBroadcaster records published entries.
type capturingBroadcaster struct {
	events  []string
	entries []types.Entry
}

func (b *capturingBroadcaster) Publish(_ context.Context, event string, entry types.Entry) {
	b.events = append(b.events, event)
	b.entries = append(b.entries, entry)
}

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func startService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestSubmitScore_FreshUser(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := repository.NewMemoryStore()
		svc := startService(t, service.WithStore(store))

		Convey("When u1 submits 50", func() {
			entry, err := svc.SubmitScore(ctx, "u1", 50)

			Convey("Then the response should carry rank 1", func() {
				So(err, ShouldBeNil)
				So(entry, ShouldResemble, types.Entry{UserID: "u1", Score: 50, Rank: 1})
			})

			Convey("Then the store should hold exactly that record", func() {
				all, err := store.All(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldResemble, []model.Score{{UserID: "u1", Value: 50}})
			})
		})
	})
}

func TestSubmitScore_RankAgainstExisting(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with u1 at 50", t, func() {
		store := repository.NewMemoryStore()
		svc := startService(t, service.WithStore(store))
		_, err := svc.SubmitScore(ctx, "u1", 50)
		So(err, ShouldBeNil)

		Convey("When u2 submits 70", func() {
			entry, err := svc.SubmitScore(ctx, "u2", 70)

			Convey("Then u2 should rank 1; nothing exceeds 70", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When u2 submits 30", func() {
			entry, err := svc.SubmitScore(ctx, "u2", 30)

			Convey("Then u2 should rank below u1", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
			})
		})

		Convey("When u2 ties u1 at 50", func() {
			entry, err := svc.SubmitScore(ctx, "u2", 50)

			Convey("Then the tied users share the rank", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestSubmitScore_Resubmission(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user who already submitted", t, func() {
		store := repository.NewMemoryStore()
		svc := startService(t, service.WithStore(store))
		_, err := svc.SubmitScore(ctx, "u1", 50)
		So(err, ShouldBeNil)

		Convey("When the same user submits again", func() {
			_, err := svc.SubmitScore(ctx, "u1", 90)
			So(err, ShouldBeNil)

			Convey("Then the store should still hold one record, with the latest value", func() {
				So(store.Len(), ShouldEqual, 1)
				all, err := store.All(ctx)
				So(err, ShouldBeNil)
				So(all[0].Value, ShouldEqual, 90)
			})
		})
	})
}

func TestSubmitScore_Broadcasts(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with a broadcaster", t, func() {
		b := &capturingBroadcaster{}
		svc := startService(t, service.WithBroadcaster(b))

		Convey("When a submission succeeds", func() {
			entry, err := svc.SubmitScore(ctx, "u1", 50)
			So(err, ShouldBeNil)

			Convey("Then score_updated should be published with the write-path rank", func() {
				So(b.events, ShouldResemble, []string{"score_updated"})
				So(b.entries, ShouldResemble, []types.Entry{entry})
			})
		})
	})
}

func TestLeaderboard_CacheHit(t *testing.T) {
	ctx := context.Background()

	Convey("Given submissions flowed through to the cache", t, func() {
		c := cache.NewMemoryCache()
		svc := startService(t, service.WithCache(c))
		_, err := svc.SubmitScore(ctx, "u1", 50)
		So(err, ShouldBeNil)
		_, err = svc.SubmitScore(ctx, "u2", 70)
		So(err, ShouldBeNil)

		// Write-through is asynchronous; wait for the workers.
		So(eventually(func() bool { return c.Len() == 2 }), ShouldBeTrue)

		Convey("When reading the leaderboard", func() {
			source, entries, err := svc.Leaderboard(ctx, 10)

			Convey("Then the cache should answer with positional ranks", func() {
				So(err, ShouldBeNil)
				So(source, ShouldEqual, service.SourceCache)
				So(entries, ShouldResemble, []types.Entry{
					{UserID: "u2", Score: 70, Rank: 1},
					{UserID: "u1", Score: 50, Rank: 2},
				})
			})
		})
	})
}

func TestLeaderboard_FallbackOnEmptyCache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a populated store and a forcibly emptied cache", t, func() {
		store := repository.NewMemoryStore()
		c := cache.NewMemoryCache()
		svc := startService(t, service.WithStore(store), service.WithCache(c))
		_, err := svc.SubmitScore(ctx, "u1", 50)
		So(err, ShouldBeNil)
		_, err = svc.SubmitScore(ctx, "u2", 70)
		So(err, ShouldBeNil)
		So(eventually(func() bool { return c.Len() == 2 }), ShouldBeTrue)
		So(c.RebuildFrom(ctx, nil), ShouldBeNil) // drop the mirror

		Convey("When reading the leaderboard", func() {
			source, entries, err := svc.Leaderboard(ctx, 10)

			Convey("Then the store should answer, correctly ranked", func() {
				So(err, ShouldBeNil)
				So(source, ShouldEqual, service.SourceStore)
				So(entries, ShouldResemble, []types.Entry{
					{UserID: "u2", Score: 70, Rank: 1},
					{UserID: "u1", Score: 50, Rank: 2},
				})
			})

			Convey("Then the cache should have been repopulated", func() {
				So(c.Len(), ShouldEqual, 2)

				next, _, err := svc.Leaderboard(ctx, 10)
				So(err, ShouldBeNil)
				So(next, ShouldEqual, service.SourceCache)
			})
		})
	})
}

func TestLeaderboard_CacheFailureTransparency(t *testing.T) {
	ctx := context.Background()

	Convey("Given an unreachable cache backend", t, func() {
		store := repository.NewMemoryStore()
		svc := startService(t, service.WithStore(store), service.WithCache(downCache{}))

		Convey("When submitting and reading", func() {
			entry, err := svc.SubmitScore(ctx, "u1", 50)
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 1)

			source, entries, err := svc.Leaderboard(ctx, 10)

			Convey("Then reads should degrade to the store, never fail", func() {
				So(err, ShouldBeNil)
				So(source, ShouldEqual, service.SourceStore)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].UserID, ShouldEqual, "u1")
			})
		})
	})
}

func TestStart_HydrationNoOpOnEmptyStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store and a cache holding stale content", t, func() {
		c := cache.NewMemoryCache()
		So(c.Upsert(ctx, "stale", 99), ShouldBeNil)

		startService(t, service.WithStore(repository.NewMemoryStore()), service.WithCache(c))

		Convey("Then hydration should leave the cache untouched", func() {
			So(c.Len(), ShouldEqual, 1)
		})
	})
}

func TestStart_HydratesFromPopulatedStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that already holds records", t, func() {
		store := repository.NewMemoryStore()
		_, err := store.Upsert(ctx, "u1", 50)
		So(err, ShouldBeNil)
		_, err = store.Upsert(ctx, "u2", 70)
		So(err, ShouldBeNil)

		c := cache.NewMemoryCache()
		svc := startService(t, service.WithStore(store), service.WithCache(c))

		Convey("Then startup should rebuild the cache from the store", func() {
			So(c.Len(), ShouldEqual, 2)

			source, entries, err := svc.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(source, ShouldEqual, service.SourceCache)
			So(entries[0].UserID, ShouldEqual, "u2")
		})
	})
}

func TestLeaderboard_InvalidLimit(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc := startService(t)

		Convey("When reading with a non-positive limit", func() {
			_, _, err := svc.Leaderboard(context.Background(), 0)

			Convey("Then the limit should be rejected", func() {
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})
}
