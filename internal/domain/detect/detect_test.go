package detect_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/celebratehub/confetti/internal/adapters/store"
	"github.com/celebratehub/confetti/internal/domain/detect"
	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/internal/domain/thresholds"
	"github.com/celebratehub/confetti/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	_ = logger.SetLevelString("error")
	os.Exit(m.Run())
}

// fakeCounterStore lets tests inject CAS conflicts and store failures.
type fakeCounterStore struct {
	mu       sync.Mutex
	records  map[string]model.ContributorCounters
	versions map[string]uint64

	conflicts int // CompareAndSwap fails this many times before succeeding
	loadErr   error
	casErr    error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{
		records:  make(map[string]model.ContributorCounters),
		versions: make(map[string]uint64),
	}
}

func (f *fakeCounterStore) Load(_ context.Context, key model.CounterKey) (model.ContributorCounters, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return model.ContributorCounters{}, 0, f.loadErr
	}
	return f.records[key.String()].Clone(), f.versions[key.String()], nil
}

func (f *fakeCounterStore) CompareAndSwap(_ context.Context, key model.CounterKey, expected uint64, record model.ContributorCounters) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casErr != nil {
		return false, f.casErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return false, nil
	}
	if f.versions[key.String()] != expected {
		return false, nil
	}
	f.records[key.String()] = record
	f.versions[key.String()] = expected + 1
	return true, nil
}

type fakeDirectory struct {
	ids map[string]string
}

func (f *fakeDirectory) LookupByLogin(_ context.Context, login string) (string, error) {
	id, ok := f.ids[login]
	if !ok {
		return "", errors.New("no such login")
	}
	return id, nil
}

func event(kind model.EventKind, commits int) model.Event {
	return model.Event{
		Kind:        kind,
		Repository:  "octo/widgets",
		Actor:       "alice",
		CommitCount: commits,
		ReceivedAt:  time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestDetect(t *testing.T) {
	Convey("Given a detector over an empty counter store", t, func() {
		counters := newFakeCounterStore()
		d := detect.NewDetector(counters, thresholds.Defaults())

		Convey("When the first merged pull request arrives", func() {
			m, err := d.Detect(context.Background(), event(model.KindPullRequestMerged, 0))

			Convey("Then the first threshold should fire", func() {
				So(err, ShouldBeNil)
				So(m, ShouldNotBeNil)
				So(m.Category, ShouldEqual, model.CategoryPullRequest)
				So(m.Count, ShouldEqual, 1)
				So(m.Threshold, ShouldEqual, 1)
				So(m.Repository, ShouldEqual, "octo/widgets")
				So(m.Contributor, ShouldEqual, "alice")
			})
		})

		Convey("When a counter lands between thresholds", func() {
			_, err := d.Detect(context.Background(), event(model.KindPullRequestMerged, 0))
			So(err, ShouldBeNil)

			m, err := d.Detect(context.Background(), event(model.KindPullRequestMerged, 0))

			Convey("Then no milestone should fire", func() {
				So(err, ShouldBeNil)
				So(m, ShouldBeNil)
			})
		})

		Convey("When a batched push jumps past a commit threshold", func() {
			// 0 -> 8 -> 16 commits; the table has 10.
			m1, err := d.Detect(context.Background(), event(model.KindPushCommits, 8))
			So(err, ShouldBeNil)
			So(m1, ShouldBeNil)

			m2, err := d.Detect(context.Background(), event(model.KindPushCommits, 8))

			Convey("Then the skipped threshold never fires", func() {
				So(err, ShouldBeNil)
				So(m2, ShouldBeNil)
			})
		})

		Convey("When a push lands a commit counter exactly on a threshold", func() {
			m1, err := d.Detect(context.Background(), event(model.KindPushCommits, 4))
			So(err, ShouldBeNil)
			So(m1, ShouldBeNil)

			m2, err := d.Detect(context.Background(), event(model.KindPushCommits, 6))

			Convey("Then the commit milestone should fire", func() {
				So(err, ShouldBeNil)
				So(m2, ShouldNotBeNil)
				So(m2.Category, ShouldEqual, model.CategoryCommit)
				So(m2.Count, ShouldEqual, 10)
				So(m2.Threshold, ShouldEqual, 10)
			})
		})

		Convey("When a push carries no commits", func() {
			m, err := d.Detect(context.Background(), event(model.KindPushCommits, 0))
			So(err, ShouldBeNil)
			So(m, ShouldBeNil)

			Convey("Then only the contribution day is recorded", func() {
				rec, _, err := counters.Load(context.Background(), model.CounterKey{Repository: "octo/widgets", Actor: "alice"})
				So(err, ShouldBeNil)
				So(rec.Commits, ShouldEqual, 0)
				So(len(rec.ContributionDays), ShouldEqual, 1)
			})
		})

		Convey("When the event normalized to unknown", func() {
			m, err := d.Detect(context.Background(), event(model.KindUnknown, 0))

			Convey("Then nothing should be counted", func() {
				So(err, ShouldBeNil)
				So(m, ShouldBeNil)
				rec, _, _ := counters.Load(context.Background(), model.CounterKey{Repository: "octo/widgets", Actor: "alice"})
				So(rec.PullRequests, ShouldEqual, 0)
			})
		})

		Convey("When the event is missing its repository or actor", func() {
			ev := event(model.KindStarCreated, 0)
			ev.Repository = ""
			m, err := d.Detect(context.Background(), ev)

			Convey("Then it should be dropped without error", func() {
				So(err, ShouldBeNil)
				So(m, ShouldBeNil)
			})

			ev = event(model.KindStarCreated, 0)
			ev.Actor = ""
			m, err = d.Detect(context.Background(), ev)
			So(err, ShouldBeNil)
			So(m, ShouldBeNil)
		})
	})
}

func TestDetectContributionDays(t *testing.T) {
	Convey("Given a detector with a low contribution-day ladder", t, func() {
		counters := newFakeCounterStore()
		table, err := thresholds.New(map[model.Category][]int{
			model.CategoryPullRequest:      {100},
			model.CategoryCommit:           {1000},
			model.CategoryContributionDays: {2},
		})
		So(err, ShouldBeNil)
		d := detect.NewDetector(counters, table)

		day := func(dayOfMonth int, kind model.EventKind, commits int) model.Event {
			ev := event(kind, commits)
			ev.ReceivedAt = time.Date(2024, 3, dayOfMonth, 9, 0, 0, 0, time.UTC)
			return ev
		}

		Convey("When activity spans two distinct days", func() {
			m, err := d.Detect(context.Background(), day(1, model.KindPullRequestMerged, 0))
			So(err, ShouldBeNil)
			So(m, ShouldBeNil)

			m, err = d.Detect(context.Background(), day(2, model.KindPushCommits, 3))

			Convey("Then the streak milestone should fire as fallback", func() {
				So(err, ShouldBeNil)
				So(m, ShouldNotBeNil)
				So(m.Category, ShouldEqual, model.CategoryContributionDays)
				So(m.Count, ShouldEqual, 2)
				So(m.Threshold, ShouldEqual, 2)
			})
		})

		Convey("When more activity lands on an already-counted day", func() {
			m, err := d.Detect(context.Background(), day(1, model.KindPullRequestMerged, 0))
			So(err, ShouldBeNil)
			So(m, ShouldBeNil)

			m, err = d.Detect(context.Background(), day(1, model.KindPushCommits, 3))

			Convey("Then the day set should not grow", func() {
				So(err, ShouldBeNil)
				So(m, ShouldBeNil)
				rec, _, _ := counters.Load(context.Background(), model.CounterKey{Repository: "octo/widgets", Actor: "alice"})
				So(len(rec.ContributionDays), ShouldEqual, 1)
			})
		})

		Convey("When a star arrives on a new day", func() {
			m, err := d.Detect(context.Background(), day(1, model.KindPullRequestMerged, 0))
			So(err, ShouldBeNil)
			So(m, ShouldBeNil)

			m, err = d.Detect(context.Background(), day(2, model.KindStarCreated, 0))

			Convey("Then stars should not extend the streak", func() {
				So(err, ShouldBeNil)
				So(m, ShouldBeNil)
				rec, _, _ := counters.Load(context.Background(), model.CounterKey{Repository: "octo/widgets", Actor: "alice"})
				So(len(rec.ContributionDays), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a ladder where category and streak cross together", t, func() {
		counters := newFakeCounterStore()
		table, err := thresholds.New(map[model.Category][]int{
			model.CategoryPullRequest:      {1},
			model.CategoryContributionDays: {1},
		})
		So(err, ShouldBeNil)
		d := detect.NewDetector(counters, table)

		Convey("When both would fire on the same event", func() {
			m, err := d.Detect(context.Background(), event(model.KindPullRequestMerged, 0))

			Convey("Then the primary category wins", func() {
				So(err, ShouldBeNil)
				So(m, ShouldNotBeNil)
				So(m.Category, ShouldEqual, model.CategoryPullRequest)
			})
		})
	})
}

func TestDetectUserResolution(t *testing.T) {
	Convey("Given a detector with a user directory", t, func() {
		counters := newFakeCounterStore()
		dir := &fakeDirectory{ids: map[string]string{"alice": "U123"}}
		d := detect.NewDetector(counters, thresholds.Defaults(), detect.WithDirectory(dir))

		Convey("When the contributor has an account", func() {
			m, err := d.Detect(context.Background(), event(model.KindPullRequestMerged, 0))

			Convey("Then the milestone should carry the user id", func() {
				So(err, ShouldBeNil)
				So(m, ShouldNotBeNil)
				So(m.UserID, ShouldEqual, "U123")
			})
		})

		Convey("When the contributor has no account", func() {
			ev := event(model.KindPullRequestMerged, 0)
			ev.Actor = "stranger"
			m, err := d.Detect(context.Background(), ev)

			Convey("Then the milestone should still fire with an empty user id", func() {
				So(err, ShouldBeNil)
				So(m, ShouldNotBeNil)
				So(m.UserID, ShouldBeEmpty)
			})
		})
	})
}

func TestDetectRetries(t *testing.T) {
	Convey("Given a counter store that conflicts", t, func() {
		Convey("When conflicts stay within the retry budget", func() {
			counters := newFakeCounterStore()
			counters.conflicts = 2
			d := detect.NewDetector(counters, thresholds.Defaults(),
				detect.WithMaxAttempts(5),
				detect.WithRetryBackoff(time.Millisecond),
			)

			m, err := d.Detect(context.Background(), event(model.KindStarCreated, 0))

			Convey("Then the update should land on a later attempt", func() {
				So(err, ShouldBeNil)
				So(m, ShouldNotBeNil)
				So(m.Category, ShouldEqual, model.CategoryStar)
				So(m.Count, ShouldEqual, 1)
			})
		})

		Convey("When conflicts exhaust the retry budget", func() {
			counters := newFakeCounterStore()
			counters.conflicts = 10
			d := detect.NewDetector(counters, thresholds.Defaults(),
				detect.WithMaxAttempts(3),
				detect.WithRetryBackoff(time.Millisecond),
			)

			m, err := d.Detect(context.Background(), event(model.KindStarCreated, 0))

			Convey("Then the detector should surface store unavailability", func() {
				So(m, ShouldBeNil)
				So(errors.Is(err, detect.ErrCountersUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the store fails outright", func() {
			counters := newFakeCounterStore()
			counters.loadErr = errors.New("connection refused")
			d := detect.NewDetector(counters, thresholds.Defaults())

			_, err := d.Detect(context.Background(), event(model.KindStarCreated, 0))

			Convey("Then the error should wrap the unavailability kind", func() {
				So(errors.Is(err, detect.ErrCountersUnavailable), ShouldBeTrue)
			})
		})

		Convey("When the swap fails outright", func() {
			counters := newFakeCounterStore()
			counters.casErr = errors.New("write timeout")
			d := detect.NewDetector(counters, thresholds.Defaults())

			_, err := d.Detect(context.Background(), event(model.KindStarCreated, 0))

			Convey("Then the error should wrap the unavailability kind", func() {
				So(errors.Is(err, detect.ErrCountersUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestDetectConcurrent(t *testing.T) {
	Convey("Given many goroutines racing on one counter", t, func() {
		counters := store.NewMemoryCounterStore()
		table, err := thresholds.New(map[model.Category][]int{
			model.CategoryStar: {16},
		})
		So(err, ShouldBeNil)
		d := detect.NewDetector(counters, table,
			detect.WithMaxAttempts(50),
			detect.WithRetryBackoff(time.Millisecond),
		)

		Convey("When 16 stars arrive concurrently", func() {
			const stars = 16
			results := make(chan *model.Milestone, stars)
			var wg sync.WaitGroup
			for i := 0; i < stars; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					m, err := d.Detect(context.Background(), event(model.KindStarCreated, 0))
					if err == nil {
						results <- m
					}
				}()
			}
			wg.Wait()
			close(results)

			emitted := 0
			for m := range results {
				if m != nil {
					emitted++
				}
			}

			Convey("Then exactly one crossing should be observed", func() {
				So(emitted, ShouldEqual, 1)
				rec, _, err := counters.Load(context.Background(), model.CounterKey{Repository: "octo/widgets", Actor: "alice"})
				So(err, ShouldBeNil)
				So(rec.Stars, ShouldEqual, stars)
			})
		})
	})
}
