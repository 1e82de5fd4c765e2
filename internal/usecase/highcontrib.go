package usecase

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/naka-gawa/gh-metrics/internal/config"
	"github.com/naka-gawa/gh-metrics/internal/domain"
)

// percentage is count*100/total in integer arithmetic, or 0 without a total.
func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return count * 100 / total
}

type metric func(domain.RepoParticipant) int

func authored(p domain.RepoParticipant) int     { return p.PRsAuthored }
func reviewed(p domain.RepoParticipant) int     { return p.ReviewedOrResolved() }
func participated(p domain.RepoParticipant) int { return p.PRsParticipated }

// HighContributors computes the concentration of work per repository. One
// row is produced per entry of repos, in that order; numPRs maps a repository
// to its pull request count.
func HighContributors(cfg config.HighContributorConfig, repos []string, numPRs map[string]int, participants []domain.RepoParticipant) []domain.HighContributorStats {
	byRepo := make(map[string][]domain.RepoParticipant)
	for _, p := range participants {
		byRepo[p.Repository] = append(byRepo[p.Repository], p)
	}

	rows := make([]domain.HighContributorStats, 0, len(repos))
	for _, repo := range repos {
		rows = append(rows, highContributorRow(cfg, repo, numPRs[repo], byRepo[repo]))
	}
	return rows
}

func highContributorRow(cfg config.HighContributorConfig, repo string, numPRs int, ps []domain.RepoParticipant) domain.HighContributorStats {
	row := domain.HighContributorStats{Repo: repo, NumberOfPRs: numPRs}

	row.TopAuthor, row.TopAuthorPercentage = top(ps, numPRs, authored)
	row.TopReviewer, row.TopReviewerPercentage = top(ps, numPRs, reviewed)
	row.TopParticipant, row.TopParticipantPercentage = top(ps, numPRs, participated)
	row.SaturationAuthorNames, row.SaturationAuthors = saturation(ps, numPRs, cfg.AuthorSaturationThreshold, authored)
	row.SaturationReviewerNames, row.SaturationReviewers = saturation(ps, numPRs, cfg.ReviewerSaturationThreshold, reviewed)

	var high []string
	for _, p := range ps {
		if authored(p) > 0 {
			row.TotalAuthors++
		}
		if reviewed(p) > 0 {
			row.TotalReviewers++
		}
		if participated(p) > 0 {
			row.TotalParticipants++
		}
		if isHighContributor(cfg, numPRs, p) {
			high = append(high, p.Participant)
		}
	}
	row.HighContributors = len(high)
	row.HighContributorNames = strings.Join(high, ",")
	return row
}

// top returns the participant with the highest metric, ties going to the
// smaller login, or "N/A" when nobody is present.
func top(ps []domain.RepoParticipant, numPRs int, m metric) (string, int) {
	if len(ps) == 0 {
		return "N/A", 0
	}
	best := slices.MaxFunc(ps, func(x, y domain.RepoParticipant) int {
		if c := cmp.Compare(m(x), m(y)); c != 0 {
			return c
		}
		return strings.Compare(y.Participant, x.Participant)
	})
	return best.Participant, percentage(m(best), numPRs)
}

// saturation returns how many of the most active participants it takes to
// exceed threshold percent of all pull requests, and their names.
func saturation(ps []domain.RepoParticipant, numPRs, threshold int, m metric) (string, int) {
	sorted := slices.Clone(ps)
	slices.SortFunc(sorted, func(x, y domain.RepoParticipant) int {
		if c := cmp.Compare(m(y), m(x)); c != 0 {
			return c
		}
		return strings.Compare(y.Participant, x.Participant)
	})

	target := numPRs * threshold / 100
	running := 0
	var names []string
	for _, p := range sorted {
		running += m(p)
		names = append(names, fmt.Sprintf("%s (%d%%)", p.Participant, percentage(m(p), numPRs)))
		if running > target {
			break
		}
	}
	return strings.Join(names, ", "), len(names)
}

func isHighContributor(cfg config.HighContributorConfig, numPRs int, p domain.RepoParticipant) bool {
	high := func(count, minPct, minPRs int) bool {
		return percentage(count, numPRs) >= minPct && count >= minPRs
	}
	categories := 0
	if high(authored(p), cfg.HighAuthorMinPercentage, cfg.HighAuthorMinPRs) {
		categories++
	}
	if high(reviewed(p), cfg.HighReviewerMinPercentage, cfg.HighReviewerMinPRs) {
		categories++
	}
	if high(participated(p), cfg.HighParticipantMinPercentage, cfg.HighParticipantMinPRs) {
		categories++
	}
	return categories >= cfg.HighContributorCategoriesThreshold
}
