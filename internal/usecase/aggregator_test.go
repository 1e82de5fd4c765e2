package usecase

import (
	"testing"
	"time"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func review(login string, after time.Duration) domain.Review {
	return domain.Review{Author: domain.User(login), State: "APPROVED", SubmittedAt: t0.Add(after)}
}

// scenarioPR is one PR authored by alice, reviewed by bob and carol.
func scenarioPR() domain.PullRequestActivity {
	return domain.PullRequestActivity{
		Repository:          "o/r",
		Number:              1,
		CreatedAt:           t0,
		Author:              domain.User("alice"),
		Reviews:             []domain.Review{review("bob", 2*time.Hour), review("carol", 4*time.Hour)},
		Participants:        []string{"alice", "bob", "carol"},
		ReviewsFetched:      2,
		ReviewsTotal:        2,
		ParticipantsFetched: 3,
		ParticipantsTotal:   3,
	}
}

func contributor(rows []domain.ContributorStats, login string) (domain.ContributorStats, bool) {
	for _, r := range rows {
		if r.Login == login {
			return r, true
		}
	}
	return domain.ContributorStats{}, false
}

func TestAggregator_SingleReviewedPR(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Add(scenarioPR())

	contributors := agg.Contributors()
	require.Len(t, contributors, 3)
	assert.Equal(t, []string{"alice", "bob", "carol"}, []string{contributors[0].Login, contributors[1].Login, contributors[2].Login})

	alice, _ := contributor(contributors, "alice")
	assert.Equal(t, 1, alice.PRsAuthored)
	assert.Equal(t, 0, alice.ReviewsGiven)

	bob, _ := contributor(contributors, "bob")
	assert.Equal(t, 1, bob.ReviewsGiven)
	assert.Equal(t, 1, bob.PRsReviewed)
	assert.Equal(t, 2.0, bob.MedianReviewTurnaroundHours)

	carol, _ := contributor(contributors, "carol")
	assert.Equal(t, 1, carol.ReviewsGiven)
	assert.Equal(t, 1, carol.ReposTouched)

	repos := agg.Repositories()
	require.Len(t, repos, 1)
	assert.Equal(t, domain.RepoStats{
		Name:                     "o/r",
		PRsOpened:                1,
		UniqueAuthors:            1,
		UniqueReviewers:          2,
		UniqueParticipants:       3,
		Reviews:                  2,
		ReviewsReported:          2,
		AvgReviewersPerPR:        2,
		MedianHoursToFirstReview: 2,
	}, repos[0])
}

func TestAggregator_DeduplicationIsIdempotent(t *testing.T) {
	earlier := scenarioPR()
	later := scenarioPR()
	later.Reviews = []domain.Review{review("dave", time.Hour)}
	later.ReviewsFetched, later.ReviewsTotal = 1, 1

	twice := NewAggregator(nil)
	twice.Add(earlier)
	twice.Add(later)

	once := NewAggregator(nil)
	once.Add(later)

	assert.Equal(t, once.Contributors(), twice.Contributors())
	assert.Equal(t, once.Repositories(), twice.Repositories())
	assert.Equal(t, once.Participants(), twice.Participants())
	assert.Equal(t, 1, twice.Len())
}

func TestAggregator_KeepsFirstSeenPosition(t *testing.T) {
	a, b := scenarioPR(), scenarioPR()
	b.Number = 2
	replaced := scenarioPR()
	replaced.Merged = true

	agg := NewAggregator(nil)
	agg.Add(a, b, replaced)

	records := agg.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Number)
	assert.True(t, records[0].Merged)
	assert.Equal(t, 2, records[1].Number)
}

func TestAggregator_NullAuthor(t *testing.T) {
	ghost := domain.PullRequestActivity{
		Repository: "o/r",
		Number:     9,
		CreatedAt:  t0,
		Author:     domain.Actor{Kind: domain.ActorNone},
		Merged:     true,
		MergedBy:   domain.Actor{Kind: domain.ActorOther, Login: "merge-queue"},
	}
	agg := NewAggregator(nil)
	agg.Add(ghost)

	assert.Empty(t, agg.Contributors())
	repos := agg.Repositories()
	require.Len(t, repos, 1)
	assert.Equal(t, 1, repos[0].PRsOpened)
	assert.Equal(t, 1, repos[0].PRsMerged)
	assert.Equal(t, 0, repos[0].UniqueAuthors)
	assert.Zero(t, repos[0].AvgReviewersPerPR)
}

func TestAggregator_AuthorRepliesAreNotReviews(t *testing.T) {
	pr := scenarioPR()
	reply := review("alice", time.Hour)
	reply.State = "COMMENTED"
	pr.Reviews = append([]domain.Review{reply}, pr.Reviews...)
	pr.ReviewsFetched, pr.ReviewsTotal = 3, 3

	agg := NewAggregator(nil)
	agg.Add(pr)

	alice, found := contributor(agg.Contributors(), "alice")
	require.True(t, found)
	assert.Equal(t, 0, alice.ReviewsGiven)
	assert.Equal(t, 0, alice.PRsReviewed)
	assert.Zero(t, alice.MedianReviewTurnaroundHours)

	repo := agg.Repositories()[0]
	assert.Equal(t, 2, repo.UniqueReviewers)
	assert.Equal(t, 2.0, repo.AvgReviewersPerPR)
	assert.Equal(t, 2.0, repo.MedianHoursToFirstReview)
	assert.Equal(t, 3, repo.Reviews, "fetched review events are counted as reported")

	for _, p := range agg.Participants() {
		if p.Participant == "alice" {
			assert.Equal(t, 0, p.PRsReviewed)
			assert.Equal(t, 1, p.PRsAuthored)
		}
	}
}

func TestAggregator_Robots(t *testing.T) {
	pr := scenarioPR()
	pr.Reviews = append(pr.Reviews, review("Bors", time.Minute))
	pr.Participants = append(pr.Participants, "bors")

	agg := NewAggregator([]string{"bors"})
	agg.Add(pr)

	_, found := contributor(agg.Contributors(), "Bors")
	assert.False(t, found)
	for _, p := range agg.Participants() {
		assert.NotEqual(t, "bors", p.Participant)
	}
	// repository tallies still see every review
	assert.Equal(t, 3, agg.Repositories()[0].Reviews)
}

func TestAggregator_Participants(t *testing.T) {
	merged := scenarioPR()
	merged.Merged = true
	merged.MergedBy = domain.User("bob")
	second := scenarioPR()
	second.Number = 2
	second.Author = domain.User("bob")
	second.Reviews = []domain.Review{review("alice", time.Hour), review("alice", 2*time.Hour)}
	other := scenarioPR()
	other.Repository = "o/a"

	agg := NewAggregator(nil)
	agg.Add(merged, second, other)

	got := agg.Participants()
	want := []domain.RepoParticipant{
		{Repository: "o/a", Participant: "alice", PRsParticipated: 1, PRsAuthored: 1},
		{Repository: "o/a", Participant: "bob", PRsParticipated: 1, PRsReviewed: 1},
		{Repository: "o/a", Participant: "carol", PRsParticipated: 1, PRsReviewed: 1},
		{Repository: "o/r", Participant: "alice", PRsParticipated: 2, PRsAuthored: 1, PRsReviewed: 1},
		{Repository: "o/r", Participant: "bob", PRsParticipated: 2, PRsAuthored: 1, PRsReviewed: 1, PRsResolved: 1},
		{Repository: "o/r", Participant: "carol", PRsParticipated: 2, PRsReviewed: 1},
	}
	assert.Equal(t, want, got)

	alice, _ := contributor(agg.Contributors(), "alice")
	assert.Equal(t, 2, alice.ReposTouched)
	assert.Equal(t, 2, alice.ReviewsGiven)
	assert.Equal(t, 1, alice.PRsReviewed)
}

func TestAggregator_Merge(t *testing.T) {
	a := NewAggregator(nil)
	a.Add(scenarioPR())
	b := NewAggregator(nil)
	other := scenarioPR()
	other.Repository = "o/b"
	b.Add(other, scenarioPR())

	merged := NewAggregator(nil)
	merged.Merge(a)
	merged.Merge(b)

	assert.Equal(t, 2, merged.Len())
	assert.Len(t, merged.Repositories(), 2)
}

func TestIssueTally(t *testing.T) {
	tally := NewIssueTally()
	tally.Add(
		domain.IssueActivity{Repository: "o/r", Number: 1, Event: domain.IssueOpened},
		domain.IssueActivity{Repository: "o/r", Number: 1, Event: domain.IssueOpened},
		domain.IssueActivity{Repository: "o/r", Number: 1, Event: domain.IssueClosed},
		domain.IssueActivity{Repository: "o/r", Number: 2, Event: domain.IssueClosed},
	)
	other := NewIssueTally()
	other.Add(domain.IssueActivity{Repository: "o/b", Number: 5, Event: domain.IssueOpened})
	tally.Merge(other)

	got := tally.Closures("2024-01-01<>2024-01-31", []string{"o/r", "o/quiet"})
	assert.Equal(t, []domain.IssueClosureStats{
		{Repository: "o/b", Opened: 1, Period: "2024-01-01<>2024-01-31"},
		{Repository: "o/quiet", Period: "2024-01-01<>2024-01-31"},
		{Repository: "o/r", Opened: 1, Closed: 2, Period: "2024-01-01<>2024-01-31"},
	}, got)
	assert.Equal(t, -1, got[2].Delta())
}
