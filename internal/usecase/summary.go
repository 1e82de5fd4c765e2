package usecase

import (
	"strings"

	"github.com/naka-gawa/gh-metrics/internal/config"
	"github.com/naka-gawa/gh-metrics/internal/domain"
)

// Summary holds every table of a report.
type Summary struct {
	Contributors     []domain.ContributorStats
	Repositories     []domain.RepoStats
	Participants     []domain.RepoParticipant
	HighContributors []domain.HighContributorStats
	IssueClosures    []domain.IssueClosureStats
}

// Summarize derives the report tables from a collection result. repos are
// the bare repository names the report covers.
func Summarize(cfg *config.Config, repos []string, res *Result) Summary {
	s := Summary{
		Contributors: res.PullRequests.Contributors(),
		Repositories: res.PullRequests.Repositories(),
		Participants: res.PullRequests.Participants(),
	}

	seen := make([]string, 0, len(s.Repositories))
	for _, r := range s.Repositories {
		seen = append(seen, r.Name)
	}
	full := fullNames(cfg.GitHub.Org, repos, append(seen, res.Issues.Repositories()...))

	s.IssueClosures = res.Issues.Closures(cfg.Period(), full)
	numPRs := make(map[string]int, len(s.Repositories))
	for _, r := range s.Repositories {
		numPRs[r.Name] = r.PRsOpened
	}
	s.HighContributors = HighContributors(cfg.HighContributor, full, numPRs, s.Participants)
	return s
}

// fullNames qualifies repos with org. GitHub matches repository names without
// regard to case, so a configured name takes the spelling of the matching
// name in seen when there is one.
func fullNames(org string, repos, seen []string) []string {
	spelling := make(map[string]string, len(seen))
	for _, name := range seen {
		if _, ok := spelling[strings.ToLower(name)]; !ok {
			spelling[strings.ToLower(name)] = name
		}
	}
	full := make([]string, 0, len(repos))
	for _, repo := range repos {
		name := org + "/" + repo
		if s, ok := spelling[strings.ToLower(name)]; ok {
			name = s
		}
		full = append(full, name)
	}
	return full
}
