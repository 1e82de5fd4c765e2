// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Executor sends a single page request and returns the raw page.
type Executor interface {
	Execute(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

// Options tunes retries, timeouts and pacing of the gateway.
type Options struct {
	Retry RetryConfig
	// RequestTimeout bounds each individual call, not a whole pagination run.
	RequestTimeout time.Duration
	// RequestsPerSecond paces outgoing calls; 0 disables pacing.
	RequestsPerSecond float64
}

// DefaultOptions returns the options used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Retry:             DefaultRetryConfig(),
		RequestTimeout:    30 * time.Second,
		RequestsPerSecond: 5,
	}
}

var _ Executor = (*GitHubGateway)(nil)

// GitHubGateway is the concrete implementation of the Executor interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	limiter       *rate.Limiter
	retry         RetryConfig
	timeout       time.Duration
	logger        zerolog.Logger
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, opts Options, logger zerolog.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return newGateway(github.NewClient(httpClient), githubv4.NewClient(httpClient), opts, logger), nil
}

func newGateway(rest *github.Client, gql *githubv4.Client, opts Options, logger zerolog.Logger) *GitHubGateway {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultOptions().RequestTimeout
	}
	if opts.Retry.Multiplier <= 0 {
		opts.Retry.Multiplier = 2.0
	}
	return &GitHubGateway{
		restClient:    rest,
		graphqlClient: gql,
		limiter:       rate.NewLimiter(limit, 1),
		retry:         opts.Retry,
		timeout:       opts.RequestTimeout,
		logger:        logger.With().Str("component", "gateway").Logger(),
	}
}

// Execute runs one page request, retrying transient failures.
func (g *GitHubGateway) Execute(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	run, err := g.template(req)
	if err != nil {
		return nil, err
	}

	var resp *domain.QueryResponse
	err = retry(ctx, g.retry, func(attempt int) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return &domain.TransportError{Request: req.String(), Message: "aborted before request", Err: err}
		}
		// An issued call is allowed to finish even if the run is aborted meanwhile,
		// so that its page still reaches the cache.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		start := time.Now()
		r, err := run(callCtx, req)
		if err != nil {
			return classify(req.String(), err)
		}
		g.logger.Debug().
			Str("request", req.String()).
			Int("attempt", attempt).
			Dur("latency", time.Since(start)).
			Bool("has_next_page", r.PageInfo != nil && r.PageInfo.HasNextPage).
			Msg("page fetched")
		resp = r
		return nil
	}, func(attempt int, wait time.Duration, err error) {
		g.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", wait).Msg("transient GitHub error, retrying")
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type templateFunc func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)

func (g *GitHubGateway) template(req domain.QueryRequest) (templateFunc, error) {
	switch req.Template() {
	case domain.TemplatePullRequests:
		return g.searchPullRequests, nil
	case domain.TemplateIssues:
		return g.searchIssues, nil
	case domain.TemplateOrgRepos:
		return g.listOrgRepos, nil
	default:
		return nil, &domain.TransportError{Request: req.String(), Message: "unknown query template " + req.Template()}
	}
}

func cursorVariable(req domain.QueryRequest) *githubv4.String {
	cursor, ok := req.Cursor()
	if !ok {
		return (*githubv4.String)(nil)
	}
	return githubv4.NewString(githubv4.String(cursor))
}

func (g *GitHubGateway) searchPullRequests(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	variables := map[string]interface{}{
		"query":  githubv4.String(req.Param("query")),
		"cursor": cursorVariable(req),
	}
	var q searchPullRequestsQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for pull requests: %w", err)
	}
	return pageResponse(req, q.Search, q.Search.PageInfo)
}

func (g *GitHubGateway) searchIssues(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	variables := map[string]interface{}{
		"query":  githubv4.String(req.Param("query")),
		"cursor": cursorVariable(req),
	}
	var q searchIssuesQuery
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for issues: %w", err)
	}
	return pageResponse(req, q.Search, q.Search.PageInfo)
}

// listOrgRepos pages through the REST repository listing; the cursor is the page number.
func (g *GitHubGateway) listOrgRepos(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	page := 1
	if cursor, ok := req.Cursor(); ok {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return nil, &domain.TransportError{Request: req.String(), Message: fmt.Sprintf("invalid page cursor %q", cursor)}
		}
		page = n
	}
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		Sort:        "full_name",
		ListOptions: github.ListOptions{PerPage: 100, Page: page},
	}
	repos, resp, err := g.restClient.Repositories.ListByOrg(ctx, req.Param("org"), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories with REST API: %w", err)
	}

	doc := RepositoryListPage{Repositories: make([]RepositoryEntry, 0, len(repos))}
	for _, repo := range repos {
		doc.Repositories = append(doc.Repositories, RepositoryEntry{
			Name:     repo.GetName(),
			FullName: repo.GetFullName(),
			Archived: repo.GetArchived(),
		})
	}
	info := PageInfo{}
	if resp.NextPage != 0 {
		info.HasNextPage = true
		info.EndCursor = githubv4.String(strconv.Itoa(resp.NextPage))
	}
	return pageResponse(req, doc, info)
}

func pageResponse(req domain.QueryRequest, doc any, info PageInfo) (*domain.QueryResponse, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, &domain.MalformedPageError{Request: req.String(), Reason: "page document does not encode", Err: err}
	}
	return &domain.QueryResponse{
		Template: req.Template(),
		Payload:  payload,
		PageInfo: &domain.PageInfo{HasNextPage: info.HasNextPage, EndCursor: string(info.EndCursor)},
	}, nil
}
