package gateway

import "github.com/shurcooL/githubv4"

// The structs below double as GraphQL query definitions (graphql tags, read by
// githubv4) and as the page documents stored in the replay cache (json tags).

// PageInfo is the GraphQL connection page info.
type PageInfo struct {
	HasNextPage bool            `json:"hasNextPage"`
	EndCursor   githubv4.String `json:"endCursor"`
}

// Actor is any GitHub actor; __typename tells users apart from bots and organizations.
type Actor struct {
	Typename string `graphql:"__typename" json:"__typename"`
	Login    string `json:"login"`
}

// Repository identifies the repository a search hit belongs to.
type Repository struct {
	NameWithOwner string `json:"nameWithOwner"`
}

// ReviewNode is one submitted review.
type ReviewNode struct {
	Author      Actor             `json:"author"`
	State       string            `json:"state"`
	SubmittedAt githubv4.DateTime `json:"submittedAt"`
}

// PullRequestNode carries the pull request fields the extractor needs.
type PullRequestNode struct {
	Number     int               `json:"number"`
	CreatedAt  githubv4.DateTime `json:"createdAt"`
	Merged     bool              `json:"merged"`
	MergedAt   githubv4.DateTime `json:"mergedAt"`
	Repository Repository        `json:"repository"`
	Author     Actor             `json:"author"`
	MergedBy   Actor             `json:"mergedBy"`
	Reviews    struct {
		TotalCount int          `json:"totalCount"`
		Nodes      []ReviewNode `json:"nodes"`
	} `graphql:"reviews(first: 100)" json:"reviews"`
	Participants struct {
		TotalCount int `json:"totalCount"`
		Nodes      []struct {
			Login string `json:"login"`
		} `json:"nodes"`
	} `graphql:"participants(first: 100)" json:"participants"`
}

// PullRequestSearchPage is the page document of the pull-requests template.
type PullRequestSearchPage struct {
	IssueCount int      `json:"issueCount"`
	PageInfo   PageInfo `json:"pageInfo"`
	Edges      []struct {
		Node struct {
			Typename    string          `graphql:"__typename" json:"__typename"`
			PullRequest PullRequestNode `graphql:"... on PullRequest" json:"pullRequest"`
		} `json:"node"`
	} `json:"edges"`
}

// searchPullRequestsQuery uses a smaller page size because of the nested connections.
type searchPullRequestsQuery struct {
	Search PullRequestSearchPage `graphql:"search(query: $query, type: ISSUE, first: 50, after: $cursor)"`
}

// IssueNode carries the issue fields needed for closure counts.
type IssueNode struct {
	Number     int        `json:"number"`
	Repository Repository `json:"repository"`
}

// IssueSearchPage is the page document of the issues template.
type IssueSearchPage struct {
	IssueCount int      `json:"issueCount"`
	PageInfo   PageInfo `json:"pageInfo"`
	Edges      []struct {
		Node struct {
			Typename string    `graphql:"__typename" json:"__typename"`
			Issue    IssueNode `graphql:"... on Issue" json:"issue"`
		} `json:"node"`
	} `json:"edges"`
}

type searchIssuesQuery struct {
	Search IssueSearchPage `graphql:"search(query: $query, type: ISSUE, first: 100, after: $cursor)"`
}

// RepositoryListPage is the page document of the org-repos template.
type RepositoryListPage struct {
	Repositories []RepositoryEntry `json:"repositories"`
}

// RepositoryEntry is a slimmed-down REST repository.
type RepositoryEntry struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Archived bool   `json:"archived"`
}
