package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/solecism/podium/internal/adapters/http/api"
	"github.com/solecism/podium/internal/adapters/repository"
	"github.com/solecism/podium/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps implements api.Dependencies with canned behavior.
type stubDeps struct {
	submitCalls int
	lastUserID  string
	lastValue   float64
	submitErr   error

	readCalls int
	lastLimit int
	source    string
	entries   []types.Entry
	readErr   error
}

func (s *stubDeps) SubmitScore(_ context.Context, userID string, value float64) (types.Entry, error) {
	s.submitCalls++
	s.lastUserID = userID
	s.lastValue = value
	if s.submitErr != nil {
		return types.Entry{}, s.submitErr
	}
	return types.Entry{UserID: userID, Score: value, Rank: 1}, nil
}

func (s *stubDeps) Leaderboard(_ context.Context, n int) (string, []types.Entry, error) {
	s.readCalls++
	s.lastLimit = n
	if s.readErr != nil {
		return "", nil, s.readErr
	}
	return s.source, s.entries, nil
}

func newTestServer(deps *stubDeps) *httptest.Server {
	router := mux.NewRouter()
	api.NewServer(deps, 10, 100).Register(context.Background(), router)
	return httptest.NewServer(router)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}

func TestPostScore(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When posting a valid submission", func() {
			resp, err := http.Post(srv.URL+"/score", "application/json",
				strings.NewReader(`{"userId":"u1","value":50}`))
			So(err, ShouldBeNil)

			Convey("Then the stored score and rank should come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				body := decodeBody(t, resp)
				So(body["userId"], ShouldEqual, "u1")
				So(body["score"], ShouldEqual, 50)
				So(body["rank"], ShouldEqual, 1)
				So(deps.submitCalls, ShouldEqual, 1)
			})
		})

		Convey("When posting without a userId", func() {
			resp, err := http.Post(srv.URL+"/score", "application/json",
				strings.NewReader(`{"value":50}`))
			So(err, ShouldBeNil)

			Convey("Then the submission should be rejected before any side effect", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				body := decodeBody(t, resp)
				So(body["code"], ShouldEqual, "invalid_input")
				So(deps.submitCalls, ShouldEqual, 0)
			})
		})

		Convey("When posting a non-numeric value", func() {
			resp, err := http.Post(srv.URL+"/score", "application/json",
				strings.NewReader(`{"userId":"u1","value":"bad"}`))
			So(err, ShouldBeNil)

			Convey("Then the submission should be rejected before any side effect", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				body := decodeBody(t, resp)
				So(body["code"], ShouldEqual, "invalid_input")
				So(deps.submitCalls, ShouldEqual, 0)
			})
		})

		Convey("When posting without a value", func() {
			resp, err := http.Post(srv.URL+"/score", "application/json",
				strings.NewReader(`{"userId":"u1"}`))
			So(err, ShouldBeNil)

			Convey("Then the submission should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(deps.submitCalls, ShouldEqual, 0)
			})
		})

		Convey("When the store is unreachable", func() {
			deps.submitErr = repository.ErrUnavailable
			resp, err := http.Post(srv.URL+"/score", "application/json",
				strings.NewReader(`{"userId":"u1","value":50}`))
			So(err, ShouldBeNil)

			Convey("Then the submission should fail outright", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				body := decodeBody(t, resp)
				So(body["code"], ShouldEqual, "store_unavailable")
			})
		})

		Convey("When using the wrong method", func() {
			resp, err := http.Get(srv.URL + "/score")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the route should not match", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestGetLeaderboard(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			source: "cache",
			entries: []types.Entry{
				{UserID: "u2", Score: 70, Rank: 1},
				{UserID: "u1", Score: 50, Rank: 2},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When reading without a limit", func() {
			resp, err := http.Get(srv.URL + "/leaderboard")
			So(err, ShouldBeNil)

			Convey("Then the default limit should apply", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 10)

				body := decodeBody(t, resp)
				So(body["source"], ShouldEqual, "cache")
				rows, ok := body["leaderboard"].([]any)
				So(ok, ShouldBeTrue)
				So(rows, ShouldHaveLength, 2)
				first, ok := rows[0].(map[string]any)
				So(ok, ShouldBeTrue)
				So(first["userId"], ShouldEqual, "u2")
				So(first["rank"], ShouldEqual, 1)
			})
		})

		Convey("When reading with an explicit limit", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=3")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the limit should pass through", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 3)
			})
		})

		Convey("When reading with a malformed limit", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=abc")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the read should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(deps.readCalls, ShouldEqual, 0)
			})
		})

		Convey("When reading past the configured maximum", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=101")
			So(err, ShouldBeNil)

			Convey("Then the read should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				body := decodeBody(t, resp)
				So(body["code"], ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the store itself is unreachable", func() {
			deps.readErr = repository.ErrUnavailable
			resp, err := http.Get(srv.URL + "/leaderboard")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the read should surface the failure", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestHealthz(t *testing.T) {
	Convey("Given the API server", t, func() {
		srv := newTestServer(&stubDeps{})
		defer srv.Close()

		Convey("When probing /healthz", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)

			Convey("Then it should report ok", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				body := decodeBody(t, resp)
				So(body["status"], ShouldEqual, "ok")
			})
		})

		Convey("When scraping /metrics", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the Prometheus endpoint should answer", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
