package usecase

import (
	"fmt"

	"github.com/naka-gawa/gh-metrics/internal/config"
	"github.com/naka-gawa/gh-metrics/internal/domain"
)

// OrgReposIdentity lists every repository of org.
func OrgReposIdentity(org string) domain.QueryIdentity {
	return domain.QueryIdentity{
		Name:     "org-repos:" + org,
		Template: domain.TemplateOrgRepos,
		Params:   map[string]string{"org": org},
	}
}

// PullRequestIdentity searches the pull requests created in a repository within dateRange.
func PullRequestIdentity(org, repo, dateRange string) domain.QueryIdentity {
	return domain.QueryIdentity{
		Name:     fmt.Sprintf("pull-requests:%s/%s", org, repo),
		Template: domain.TemplatePullRequests,
		Params:   map[string]string{"query": fmt.Sprintf("repo:%s/%s is:pr created:%s", org, repo, dateRange)},
	}
}

// IssueIdentity searches the issues of a repository opened or closed within dateRange.
func IssueIdentity(org, repo, dateRange string, event domain.IssueEvent) domain.QueryIdentity {
	qualifier := "created"
	if event == domain.IssueClosed {
		qualifier = "closed"
	}
	return domain.QueryIdentity{
		Name:     fmt.Sprintf("issues-%s:%s/%s", event, org, repo),
		Template: domain.TemplateIssues,
		Params:   map[string]string{"query": fmt.Sprintf("repo:%s/%s is:issue %s:%s", org, repo, qualifier, dateRange)},
		Event:    event,
	}
}

// Identities builds the query identities of a report over repos, grouped by
// repository: pull requests, opened issues, closed issues.
func Identities(cfg *config.Config, repos []string) []domain.QueryIdentity {
	org, dates := cfg.GitHub.Org, cfg.DateRange()
	ids := make([]domain.QueryIdentity, 0, len(repos)*3)
	for _, repo := range repos {
		ids = append(ids,
			PullRequestIdentity(org, repo, dates),
			IssueIdentity(org, repo, dates, domain.IssueOpened),
			IssueIdentity(org, repo, dates, domain.IssueClosed),
		)
	}
	return ids
}
