package domain

import (
	"encoding/json"
	"strconv"
)

// Row is one summarized entity. Values are returned in the column order
// of the table schema the row belongs to.
type Row interface {
	Values() []string
}

// ContributorStats holds the activity of one contributor across all repositories.
type ContributorStats struct {
	Login                       string  `json:"login"`
	PRsAuthored                 int     `json:"prs_authored"`
	PRsMerged                   int     `json:"prs_merged"`
	ReviewsGiven                int     `json:"reviews_given"`
	PRsReviewed                 int     `json:"prs_reviewed"`
	PRsParticipated             int     `json:"prs_participated"`
	ReposTouched                int     `json:"repos_touched"`
	MedianReviewTurnaroundHours float64 `json:"median_review_turnaround_hours"`
}

// ContributorColumns is the column schema of the contributor table.
var ContributorColumns = []string{
	"login", "prs_authored", "prs_merged", "reviews_given", "prs_reviewed",
	"prs_participated", "repos_touched", "median_review_turnaround_hours",
}

func (s ContributorStats) Values() []string {
	return []string{
		s.Login, itoa(s.PRsAuthored), itoa(s.PRsMerged), itoa(s.ReviewsGiven), itoa(s.PRsReviewed),
		itoa(s.PRsParticipated), itoa(s.ReposTouched), ftoa(s.MedianReviewTurnaroundHours),
	}
}

// RepoStats holds the activity counts for a single repository.
type RepoStats struct {
	Name                     string  `json:"repository"`
	PRsOpened                int     `json:"prs_opened"`
	PRsMerged                int     `json:"prs_merged"`
	UniqueAuthors            int     `json:"unique_authors"`
	UniqueReviewers          int     `json:"unique_reviewers"`
	UniqueParticipants       int     `json:"unique_participants"`
	Reviews                  int     `json:"reviews"`
	ReviewsReported          int     `json:"reviews_reported"`
	TruncatedPRs             int     `json:"truncated_prs"`
	AvgReviewersPerPR        float64 `json:"avg_reviewers_per_pr"`
	MedianHoursToFirstReview float64 `json:"median_hours_to_first_review"`
}

// RepoColumns is the column schema of the repository table.
var RepoColumns = []string{
	"repository", "prs_opened", "prs_merged", "unique_authors", "unique_reviewers",
	"unique_participants", "reviews", "reviews_reported", "truncated_prs",
	"avg_reviewers_per_pr", "median_hours_to_first_review",
}

func (s RepoStats) Values() []string {
	return []string{
		s.Name, itoa(s.PRsOpened), itoa(s.PRsMerged), itoa(s.UniqueAuthors), itoa(s.UniqueReviewers),
		itoa(s.UniqueParticipants), itoa(s.Reviews), itoa(s.ReviewsReported), itoa(s.TruncatedPRs),
		ftoa(s.AvgReviewersPerPR), ftoa(s.MedianHoursToFirstReview),
	}
}

// RepoParticipant is one participant's activity within one repository.
type RepoParticipant struct {
	Repository      string `json:"repository"`
	Participant     string `json:"participant"`
	PRsParticipated int    `json:"prs_participated"`
	PRsAuthored     int    `json:"prs_authored"`
	PRsReviewed     int    `json:"prs_reviewed"`
	PRsResolved     int    `json:"prs_resolved"`
}

// RepoParticipantColumns is the column schema of the repository participant table.
var RepoParticipantColumns = []string{
	"repository", "participant", "prs_participated", "prs_authored", "prs_reviewed", "prs_resolved",
}

func (p RepoParticipant) Values() []string {
	return []string{
		p.Repository, p.Participant, itoa(p.PRsParticipated), itoa(p.PRsAuthored),
		itoa(p.PRsReviewed), itoa(p.PRsResolved),
	}
}

// ReviewedOrResolved is the reviewer metric used by the high-contributor report.
func (p RepoParticipant) ReviewedOrResolved() int {
	return max(p.PRsReviewed, p.PRsResolved)
}

// HighContributorStats summarizes how concentrated the work in a repository is.
type HighContributorStats struct {
	Repo                     string `json:"repo"`
	NumberOfPRs              int    `json:"number_of_prs"`
	TotalParticipants        int    `json:"total_participants"`
	TotalAuthors             int    `json:"total_authors"`
	TotalReviewers           int    `json:"total_reviewers"`
	TopAuthor                string `json:"top_author"`
	TopAuthorPercentage      int    `json:"top_author_percentage"`
	TopReviewer              string `json:"top_reviewer"`
	TopReviewerPercentage    int    `json:"top_reviewer_percentage"`
	TopParticipant           string `json:"top_participant"`
	TopParticipantPercentage int    `json:"top_participant_percentage"`
	SaturationAuthors        int    `json:"saturation_authors"`
	SaturationAuthorNames    string `json:"saturation_author_names"`
	SaturationReviewers      int    `json:"saturation_reviewers"`
	SaturationReviewerNames  string `json:"saturation_reviewer_names"`
	HighContributors         int    `json:"high_contributors"`
	HighContributorNames     string `json:"high_contributor_names"`
}

// HighContributorColumns is the column schema of the high-contributor table.
var HighContributorColumns = []string{
	"repo", "number_of_prs", "total_participants", "total_authors", "total_reviewers",
	"top_author", "top_author_percentage", "top_reviewer", "top_reviewer_percentage",
	"top_participant", "top_participant_percentage", "saturation_authors", "saturation_author_names",
	"saturation_reviewers", "saturation_reviewer_names", "high_contributors", "high_contributor_names",
}

func (s HighContributorStats) Values() []string {
	return []string{
		s.Repo, itoa(s.NumberOfPRs), itoa(s.TotalParticipants), itoa(s.TotalAuthors), itoa(s.TotalReviewers),
		s.TopAuthor, itoa(s.TopAuthorPercentage), s.TopReviewer, itoa(s.TopReviewerPercentage),
		s.TopParticipant, itoa(s.TopParticipantPercentage), itoa(s.SaturationAuthors), s.SaturationAuthorNames,
		itoa(s.SaturationReviewers), s.SaturationReviewerNames, itoa(s.HighContributors), s.HighContributorNames,
	}
}

// IssueClosureStats counts issues opened and closed in a repository over the reporting period.
type IssueClosureStats struct {
	Repository string `json:"repository"`
	Opened     int    `json:"opened"`
	Closed     int    `json:"closed"`
	Period     string `json:"period"`
}

// IssueClosureColumns is the column schema of the issue-closure table.
var IssueClosureColumns = []string{"repository", "opened", "closed", "delta", "period"}

// Delta is opened minus closed; negative when the backlog shrank.
func (s IssueClosureStats) Delta() int { return s.Opened - s.Closed }

// MarshalJSON adds the derived delta.
func (s IssueClosureStats) MarshalJSON() ([]byte, error) {
	type plain IssueClosureStats
	return json.Marshal(struct {
		plain
		Delta int `json:"delta"`
	}{plain(s), s.Delta()})
}

func (s IssueClosureStats) Values() []string {
	return []string{s.Repository, itoa(s.Opened), itoa(s.Closed), itoa(s.Delta()), s.Period}
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
