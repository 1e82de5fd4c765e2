package usecase

import (
	"slices"
	"strings"

	"github.com/naka-gawa/gh-metrics/internal/domain"
)

type issueKey struct {
	repo   string
	number int
	event  domain.IssueEvent
}

// IssueTally counts distinct issues opened and closed per repository.
type IssueTally struct {
	seen  map[issueKey]bool
	order []issueKey
}

func NewIssueTally() *IssueTally {
	return &IssueTally{seen: make(map[issueKey]bool)}
}

// Add accumulates issue records; repeated (repository, number, event) triples count once.
func (t *IssueTally) Add(records ...domain.IssueActivity) {
	for _, r := range records {
		k := issueKey{r.Repository, r.Number, r.Event}
		if t.seen[k] {
			continue
		}
		t.seen[k] = true
		t.order = append(t.order, k)
	}
}

// Merge folds other into t.
func (t *IssueTally) Merge(other *IssueTally) {
	for _, k := range other.order {
		t.Add(domain.IssueActivity{Repository: k.repo, Number: k.number, Event: k.event})
	}
}

// Repositories returns the distinct repository names seen, in first-seen order.
func (t *IssueTally) Repositories() []string {
	var out []string
	for _, k := range t.order {
		if !slices.Contains(out, k.repo) {
			out = append(out, k.repo)
		}
	}
	return out
}

// Closures returns one row per repository, sorted by repository. Every
// repository in include gets a row even without issues.
func (t *IssueTally) Closures(period string, include []string) []domain.IssueClosureStats {
	rows := make(map[string]*domain.IssueClosureStats)
	get := func(repo string) *domain.IssueClosureStats {
		r, ok := rows[repo]
		if !ok {
			r = &domain.IssueClosureStats{Repository: repo, Period: period}
			rows[repo] = r
		}
		return r
	}
	for _, repo := range include {
		get(repo)
	}
	for _, k := range t.order {
		switch k.event {
		case domain.IssueOpened:
			get(k.repo).Opened++
		case domain.IssueClosed:
			get(k.repo).Closed++
		}
	}

	out := make([]domain.IssueClosureStats, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	slices.SortFunc(out, func(x, y domain.IssueClosureStats) int { return strings.Compare(x.Repository, y.Repository) })
	return out
}
