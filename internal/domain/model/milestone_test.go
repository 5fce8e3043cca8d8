package model_test

import (
	"testing"
	"time"

	"github.com/celebratehub/confetti/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMilestoneID(t *testing.T) {
	Convey("Given milestone identity tuples", t, func() {
		Convey("When deriving the id for the same tuple twice", func() {
			a := model.MilestoneID("octo/widgets", "alice", model.CategoryPullRequest, 10)
			b := model.MilestoneID("octo/widgets", "alice", model.CategoryPullRequest, 10)

			Convey("Then both derivations should agree", func() {
				So(a, ShouldEqual, b)
				So(a, ShouldNotBeEmpty)
			})
		})

		Convey("When any tuple component differs", func() {
			base := model.MilestoneID("octo/widgets", "alice", model.CategoryPullRequest, 10)

			Convey("Then the id should differ", func() {
				So(model.MilestoneID("octo/gadgets", "alice", model.CategoryPullRequest, 10), ShouldNotEqual, base)
				So(model.MilestoneID("octo/widgets", "bob", model.CategoryPullRequest, 10), ShouldNotEqual, base)
				So(model.MilestoneID("octo/widgets", "alice", model.CategoryStar, 10), ShouldNotEqual, base)
				So(model.MilestoneID("octo/widgets", "alice", model.CategoryPullRequest, 25), ShouldNotEqual, base)
			})
		})
	})
}

func TestNewMilestone(t *testing.T) {
	Convey("Given a threshold crossing", t, func() {
		now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.FixedZone("CET", 3600))

		Convey("When building the milestone", func() {
			m := model.NewMilestone("octo/widgets", "alice", model.CategoryStar, 25, 25, now)

			Convey("Then it should carry the derived id and UTC timestamp", func() {
				So(m.ID, ShouldEqual, model.MilestoneID("octo/widgets", "alice", model.CategoryStar, 25))
				So(m.Repository, ShouldEqual, "octo/widgets")
				So(m.Contributor, ShouldEqual, "alice")
				So(m.Category, ShouldEqual, model.CategoryStar)
				So(m.Count, ShouldEqual, 25)
				So(m.Threshold, ShouldEqual, 25)
				So(m.CreatedAt.Location(), ShouldEqual, time.UTC)
				So(m.CreatedAt.Equal(now), ShouldBeTrue)
			})
		})
	})
}

func TestContributorCounters(t *testing.T) {
	Convey("Given a counter record", t, func() {
		c := model.ContributorCounters{PullRequests: 3, Stars: 7, Issues: 1, Commits: 42}
		c.AddContributionDay("2024-03-14")
		c.AddContributionDay("2024-03-15")
		c.AddContributionDay("2024-03-15")

		Convey("When reading values by category", func() {
			Convey("Then each category should report its counter", func() {
				So(c.ValueFor(model.CategoryPullRequest), ShouldEqual, 3)
				So(c.ValueFor(model.CategoryStar), ShouldEqual, 7)
				So(c.ValueFor(model.CategoryIssue), ShouldEqual, 1)
				So(c.ValueFor(model.CategoryCommit), ShouldEqual, 42)
				So(c.ValueFor(model.CategoryContributionDays), ShouldEqual, 2)
				So(c.ValueFor(model.Category("nope")), ShouldEqual, 0)
			})
		})

		Convey("When cloning and mutating the copy", func() {
			clone := c.Clone()
			clone.PullRequests++
			clone.AddContributionDay("2024-03-16")

			Convey("Then the original should be unaffected", func() {
				So(c.PullRequests, ShouldEqual, 3)
				So(len(c.ContributionDays), ShouldEqual, 2)
				So(clone.PullRequests, ShouldEqual, 4)
				So(len(clone.ContributionDays), ShouldEqual, 3)
			})
		})

		Convey("When rendering the counter key", func() {
			key := model.CounterKey{Repository: "octo/widgets", Actor: "alice"}

			Convey("Then it should join repository and actor", func() {
				So(key.String(), ShouldEqual, "octo/widgets_alice")
			})
		})
	})
}
