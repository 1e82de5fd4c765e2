// Package extract turns raw pages into flat domain records.
package extract

import (
	"encoding/json"
	"time"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/naka-gawa/gh-metrics/internal/gateway"
	"github.com/shurcooL/githubv4"
)

// Report counts what had to be skipped or null-filled on a page.
type Report struct {
	Nodes   int
	Records int
	// Skipped nodes were not of the expected type or lacked their identity.
	Skipped int
	// UnknownActors were decoded as ActorOther from an unrecognized __typename.
	UnknownActors int
}

// Anomalies is the number of irregular node shapes seen on the page.
func (r Report) Anomalies() int { return r.Skipped + r.UnknownActors }

// Add accumulates another page report.
func (r *Report) Add(o Report) {
	r.Nodes += o.Nodes
	r.Records += o.Records
	r.Skipped += o.Skipped
	r.UnknownActors += o.UnknownActors
}

// Actor type names that are known not to be users.
var nonUserActors = map[string]bool{
	"Bot":                   true,
	"Organization":          true,
	"Mannequin":             true,
	"EnterpriseUserAccount": true,
}

func decode(page *domain.QueryResponse, template string, v any) error {
	if page.Template != "" && page.Template != template {
		return &domain.MalformedPageError{Request: page.Template, Reason: "page is not a " + template + " page"}
	}
	if err := json.Unmarshal(page.Payload, v); err != nil {
		return &domain.MalformedPageError{Request: template, Reason: "payload does not decode", Err: err}
	}
	return nil
}

// PullRequests extracts one record per pull request node, in node order.
// Nodes that are not pull requests are skipped.
func PullRequests(page *domain.QueryResponse) ([]domain.PullRequestActivity, Report, error) {
	var doc gateway.PullRequestSearchPage
	if err := decode(page, domain.TemplatePullRequests, &doc); err != nil {
		return nil, Report{}, err
	}

	var rep Report
	records := make([]domain.PullRequestActivity, 0, len(doc.Edges))
	for _, edge := range doc.Edges {
		rep.Nodes++
		if edge.Node.Typename != "PullRequest" {
			rep.Skipped++
			continue
		}
		pr := edge.Node.PullRequest
		if pr.Repository.NameWithOwner == "" || pr.Number <= 0 {
			rep.Skipped++
			continue
		}

		record := domain.PullRequestActivity{
			Repository:          pr.Repository.NameWithOwner,
			Number:              pr.Number,
			CreatedAt:           timeOf(pr.CreatedAt),
			Merged:              pr.Merged,
			MergedAt:            timeOf(pr.MergedAt),
			Author:              actor(pr.Author, &rep),
			MergedBy:            actor(pr.MergedBy, &rep),
			ReviewsFetched:      len(pr.Reviews.Nodes),
			ReviewsTotal:        pr.Reviews.TotalCount,
			ParticipantsFetched: len(pr.Participants.Nodes),
			ParticipantsTotal:   pr.Participants.TotalCount,
		}
		for _, r := range pr.Reviews.Nodes {
			record.Reviews = append(record.Reviews, domain.Review{
				Author:      actor(r.Author, &rep),
				State:       r.State,
				SubmittedAt: timeOf(r.SubmittedAt),
			})
		}
		seen := make(map[string]bool, len(pr.Participants.Nodes))
		for _, p := range pr.Participants.Nodes {
			if p.Login == "" || seen[p.Login] {
				continue
			}
			seen[p.Login] = true
			record.Participants = append(record.Participants, p.Login)
		}
		records = append(records, record)
	}
	rep.Records = len(records)
	return records, rep, nil
}

// Issues extracts the issues of an opened or closed issue search page.
func Issues(page *domain.QueryResponse, event domain.IssueEvent) ([]domain.IssueActivity, Report, error) {
	var doc gateway.IssueSearchPage
	if err := decode(page, domain.TemplateIssues, &doc); err != nil {
		return nil, Report{}, err
	}

	var rep Report
	records := make([]domain.IssueActivity, 0, len(doc.Edges))
	for _, edge := range doc.Edges {
		rep.Nodes++
		issue := edge.Node.Issue
		if edge.Node.Typename != "Issue" || issue.Repository.NameWithOwner == "" || issue.Number <= 0 {
			rep.Skipped++
			continue
		}
		records = append(records, domain.IssueActivity{
			Repository: issue.Repository.NameWithOwner,
			Number:     issue.Number,
			Event:      event,
		})
	}
	rep.Records = len(records)
	return records, rep, nil
}

// Repositories returns the repository names on a listing page, in page order.
func Repositories(page *domain.QueryResponse) ([]string, Report, error) {
	var doc gateway.RepositoryListPage
	if err := decode(page, domain.TemplateOrgRepos, &doc); err != nil {
		return nil, Report{}, err
	}

	var rep Report
	names := make([]string, 0, len(doc.Repositories))
	for _, repo := range doc.Repositories {
		rep.Nodes++
		if repo.Name == "" {
			rep.Skipped++
			continue
		}
		names = append(names, repo.Name)
	}
	rep.Records = len(names)
	return names, rep, nil
}

func actor(a gateway.Actor, rep *Report) domain.Actor {
	switch {
	case a.Typename == "" && a.Login == "":
		return domain.Actor{Kind: domain.ActorNone}
	case a.Typename == "User":
		if a.Login == "" {
			rep.UnknownActors++
			return domain.Actor{Kind: domain.ActorNone}
		}
		return domain.User(a.Login)
	case nonUserActors[a.Typename]:
		return domain.Actor{Kind: domain.ActorOther, Login: a.Login}
	default:
		rep.UnknownActors++
		return domain.Actor{Kind: domain.ActorOther, Login: a.Login}
	}
}

func timeOf(t githubv4.DateTime) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
