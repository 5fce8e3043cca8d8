package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/celebratehub/confetti/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording delivery ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(context.Background(), "delivery-1")

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(context.Background(), "delivery-1")

				seen := d.SeenAndRecord(context.Background(), "delivery-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And multiple ids are recorded", func() {
				ids := []string{"delivery-1", "delivery-2", "delivery-3", "delivery-4", "delivery-5"}

				for _, id := range ids {
					seen := d.SeenAndRecord(context.Background(), id)
					So(seen, ShouldBeFalse)
				}

				Convey("Then all ids should be recorded", func() {
					So(d.Size(), ShouldEqual, int64(len(ids)))

					for _, id := range ids {
						seen := d.SeenAndRecord(context.Background(), id)
						So(seen, ShouldBeTrue)
					}
				})
			})
		})

		Convey("When unrecording an id", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(context.Background(), "delivery-1")
			d.Unrecord(context.Background(), "delivery-1")

			Convey("Then the id should be accepted again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(context.Background(), "delivery-1"), ShouldBeFalse)
			})

			Convey("And unrecording an unknown id is a no-op", func() {
				d.Unrecord(context.Background(), "never-seen")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the deduper reaches its size bound", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

			d.SeenAndRecord(context.Background(), "delivery-1")
			d.SeenAndRecord(context.Background(), "delivery-2")
			d.SeenAndRecord(context.Background(), "delivery-3")
			d.SeenAndRecord(context.Background(), "delivery-4")

			Convey("Then the oldest id should be evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(context.Background(), "delivery-1"), ShouldBeFalse)
				So(d.SeenAndRecord(context.Background(), "delivery-4"), ShouldBeTrue)
			})
		})

		Convey("When eviction encounters unrecorded ids", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))

			d.SeenAndRecord(context.Background(), "delivery-1")
			d.SeenAndRecord(context.Background(), "delivery-2")
			d.Unrecord(context.Background(), "delivery-1")

			// Fills the freed slot, then forces one real eviction.
			d.SeenAndRecord(context.Background(), "delivery-3")
			d.SeenAndRecord(context.Background(), "delivery-4")

			Convey("Then the stale entry is skipped and a live id is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(context.Background(), "delivery-4"), ShouldBeTrue)
				So(d.SeenAndRecord(context.Background(), "delivery-2"), ShouldBeFalse)
			})
		})

		Convey("When recording ids concurrently", func() {
			d := dedupe.NewInMemoryDeduper()
			const goroutines = 8
			const perGoroutine = 100

			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("g%d-delivery-%d", g, i))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then every distinct id should be tracked exactly once", func() {
				So(d.Size(), ShouldEqual, int64(goroutines*perGoroutine))
			})
		})
	})
}
