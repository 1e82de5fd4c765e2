// Package usecase contains the business logic of the application.
package usecase

import (
	"slices"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/gh-metrics/internal/domain"
)

// Aggregator reduces pull request records into contributor, repository and
// participant tables. Records are deduplicated by (repository, number); a
// later record with the same key replaces the earlier one in place.
//
// An Aggregator is not safe for concurrent use. Use one per query identity
// and Merge them once the identities are done.
type Aggregator struct {
	robots  map[string]bool
	index   map[domain.RecordKey]int
	records []domain.PullRequestActivity
}

// NewAggregator creates an Aggregator. Logins in robots are left out of the
// contributor and participant tables.
func NewAggregator(robots []string) *Aggregator {
	r := make(map[string]bool, len(robots))
	for _, login := range robots {
		r[strings.ToLower(login)] = true
	}
	return &Aggregator{robots: r, index: make(map[domain.RecordKey]int)}
}

// Add accumulates records.
func (a *Aggregator) Add(records ...domain.PullRequestActivity) {
	for _, rec := range records {
		key := rec.Key()
		if i, ok := a.index[key]; ok {
			a.records[i] = rec
			continue
		}
		a.index[key] = len(a.records)
		a.records = append(a.records, rec)
	}
}

// Merge folds the records of other into a, in other's order.
func (a *Aggregator) Merge(other *Aggregator) {
	a.Add(other.records...)
}

// Len returns the number of distinct pull requests.
func (a *Aggregator) Len() int { return len(a.records) }

// Records returns the deduplicated records in first-seen order.
func (a *Aggregator) Records() []domain.PullRequestActivity {
	return slices.Clone(a.records)
}

func (a *Aggregator) human(login string) bool {
	return login != "" && !a.robots[strings.ToLower(login)]
}

// reviewers returns the distinct user logins other than the author that
// reviewed pr, in review order. Replies of the author in a review thread show
// up as COMMENTED reviews and are not counted.
func reviewers(pr domain.PullRequestActivity) []string {
	var out []string
	for _, r := range pr.Reviews {
		if login, ok := reviewer(pr, r); ok && !slices.Contains(out, login) {
			out = append(out, login)
		}
	}
	return out
}

// reviewer returns the login of a review's author unless it is the PR author.
func reviewer(pr domain.PullRequestActivity, r domain.Review) (string, bool) {
	login, ok := r.Author.UserLogin()
	if !ok {
		return "", false
	}
	if author, isUser := pr.Author.UserLogin(); isUser && author == login {
		return "", false
	}
	return login, true
}

// firstReview returns the earliest review submitted by someone other than
// the author.
func firstReview(pr domain.PullRequestActivity, by string) (time.Time, bool) {
	author, _ := pr.Author.UserLogin()
	var first time.Time
	for _, r := range pr.Reviews {
		if r.SubmittedAt.IsZero() {
			continue
		}
		login, isUser := r.Author.UserLogin()
		if isUser && login == author {
			continue
		}
		if by != "" && login != by {
			continue
		}
		if first.IsZero() || r.SubmittedAt.Before(first) {
			first = r.SubmittedAt
		}
	}
	return first, !first.IsZero()
}

func hoursSince(from, to time.Time) (float64, bool) {
	if from.IsZero() || to.Before(from) {
		return 0, false
	}
	return to.Sub(from).Hours(), true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return m
}

type contributorTally struct {
	row         domain.ContributorStats
	repos       map[string]bool
	turnarounds []float64
}

// Contributors returns one row per human user login, sorted by login.
func (a *Aggregator) Contributors() []domain.ContributorStats {
	tallies := make(map[string]*contributorTally)
	get := func(login, repo string) *contributorTally {
		t, ok := tallies[login]
		if !ok {
			t = &contributorTally{row: domain.ContributorStats{Login: login}, repos: make(map[string]bool)}
			tallies[login] = t
		}
		t.repos[repo] = true
		return t
	}

	for _, pr := range a.records {
		if login, ok := pr.Author.UserLogin(); ok && a.human(login) {
			get(login, pr.Repository).row.PRsAuthored++
		}
		if login, ok := pr.MergedBy.UserLogin(); ok && pr.Merged && a.human(login) {
			get(login, pr.Repository).row.PRsMerged++
		}
		for _, r := range pr.Reviews {
			if login, ok := reviewer(pr, r); ok && a.human(login) {
				get(login, pr.Repository).row.ReviewsGiven++
			}
		}
		for _, login := range reviewers(pr) {
			if !a.human(login) {
				continue
			}
			t := get(login, pr.Repository)
			t.row.PRsReviewed++
			if at, ok := firstReview(pr, login); ok {
				if h, ok := hoursSince(pr.CreatedAt, at); ok {
					t.turnarounds = append(t.turnarounds, h)
				}
			}
		}
		for _, login := range pr.Participants {
			if a.human(login) {
				get(login, pr.Repository).row.PRsParticipated++
			}
		}
	}

	rows := make([]domain.ContributorStats, 0, len(tallies))
	for _, t := range tallies {
		t.row.ReposTouched = len(t.repos)
		t.row.MedianReviewTurnaroundHours = median(t.turnarounds)
		rows = append(rows, t.row)
	}
	slices.SortFunc(rows, func(x, y domain.ContributorStats) int { return strings.Compare(x.Login, y.Login) })
	return rows
}

type repoTally struct {
	row          domain.RepoStats
	authors      map[string]bool
	reviewers    map[string]bool
	participants map[string]bool
	reviewerSum  int
	firstReviews []float64
}

// Repositories returns one row per repository, sorted by name. Records
// without an author or merger still count towards these tallies.
func (a *Aggregator) Repositories() []domain.RepoStats {
	tallies := make(map[string]*repoTally)
	for _, pr := range a.records {
		t, ok := tallies[pr.Repository]
		if !ok {
			t = &repoTally{
				row:          domain.RepoStats{Name: pr.Repository},
				authors:      make(map[string]bool),
				reviewers:    make(map[string]bool),
				participants: make(map[string]bool),
			}
			tallies[pr.Repository] = t
		}

		t.row.PRsOpened++
		if pr.Merged {
			t.row.PRsMerged++
		}
		if login, ok := pr.Author.UserLogin(); ok {
			t.authors[login] = true
		}
		revs := reviewers(pr)
		for _, login := range revs {
			t.reviewers[login] = true
		}
		t.reviewerSum += len(revs)
		for _, login := range pr.Participants {
			t.participants[login] = true
		}
		t.row.Reviews += len(pr.Reviews)
		t.row.ReviewsReported += pr.ReviewsTotal
		if pr.Truncated() {
			t.row.TruncatedPRs++
		}
		if at, ok := firstReview(pr, ""); ok {
			if h, ok := hoursSince(pr.CreatedAt, at); ok {
				t.firstReviews = append(t.firstReviews, h)
			}
		}
	}

	// Derived metrics only once every record is in.
	rows := make([]domain.RepoStats, 0, len(tallies))
	for _, t := range tallies {
		t.row.UniqueAuthors = len(t.authors)
		t.row.UniqueReviewers = len(t.reviewers)
		t.row.UniqueParticipants = len(t.participants)
		if t.row.PRsOpened > 0 {
			t.row.AvgReviewersPerPR = float64(t.reviewerSum) / float64(t.row.PRsOpened)
		}
		t.row.MedianHoursToFirstReview = median(t.firstReviews)
		rows = append(rows, t.row)
	}
	slices.SortFunc(rows, func(x, y domain.RepoStats) int { return strings.Compare(x.Name, y.Name) })
	return rows
}

// Participants returns the per-repository activity of every human login,
// sorted by repository then login.
func (a *Aggregator) Participants() []domain.RepoParticipant {
	type key struct{ repo, login string }
	tallies := make(map[key]*domain.RepoParticipant)
	get := func(repo, login string) *domain.RepoParticipant {
		k := key{repo, login}
		p, ok := tallies[k]
		if !ok {
			p = &domain.RepoParticipant{Repository: repo, Participant: login}
			tallies[k] = p
		}
		return p
	}

	for _, pr := range a.records {
		for _, login := range pr.Participants {
			if a.human(login) {
				get(pr.Repository, login).PRsParticipated++
			}
		}
		if login, ok := pr.Author.UserLogin(); ok && a.human(login) {
			get(pr.Repository, login).PRsAuthored++
		}
		for _, login := range reviewers(pr) {
			if a.human(login) {
				get(pr.Repository, login).PRsReviewed++
			}
		}
		if login, ok := pr.MergedBy.UserLogin(); ok && pr.Merged && a.human(login) {
			get(pr.Repository, login).PRsResolved++
		}
	}

	rows := make([]domain.RepoParticipant, 0, len(tallies))
	for _, p := range tallies {
		rows = append(rows, *p)
	}
	slices.SortFunc(rows, func(x, y domain.RepoParticipant) int {
		if c := strings.Compare(x.Repository, y.Repository); c != 0 {
			return c
		}
		return strings.Compare(x.Participant, y.Participant)
	})
	return rows
}
