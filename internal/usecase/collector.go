package usecase

import (
	"context"
	"fmt"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/naka-gawa/gh-metrics/internal/extract"
	"github.com/naka-gawa/gh-metrics/internal/paginate"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Outcome reports how one query identity went.
type Outcome struct {
	Identity  string
	Pages     int
	Records   int
	Anomalies int
	Err       error
}

// Result holds the merged tallies of a collection run.
type Result struct {
	PullRequests *Aggregator
	Issues       *IssueTally
	Outcomes     []Outcome
}

// Failed returns the outcomes that ended with an error.
func (r *Result) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Collector drives one paginator per query identity on a bounded worker pool.
type Collector struct {
	source      paginate.Source
	robots      []string
	concurrency int
	logger      zerolog.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(source paginate.Source, robots []string, concurrency int, logger zerolog.Logger) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		source:      source,
		robots:      robots,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "collector").Logger(),
	}
}

type partial struct {
	prs     *Aggregator
	issues  *IssueTally
	outcome Outcome
}

// Collect runs every identity and merges the per-identity tallies in
// identity order. A failing identity never stops its siblings; its error
// is reported in the matching Outcome and none of its records are merged.
func (c *Collector) Collect(ctx context.Context, identities []domain.QueryIdentity) *Result {
	parts := make([]partial, len(identities))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, id := range identities {
		g.Go(func() error {
			parts[i] = c.collect(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{PullRequests: NewAggregator(c.robots), Issues: NewIssueTally()}
	for _, p := range parts {
		res.Outcomes = append(res.Outcomes, p.outcome)
		// Partial records of a failed identity would undercount its repository.
		if p.outcome.Err != nil {
			continue
		}
		res.PullRequests.Merge(p.prs)
		res.Issues.Merge(p.issues)
	}
	return res
}

func (c *Collector) collect(ctx context.Context, id domain.QueryIdentity) partial {
	p := partial{
		prs:     NewAggregator(c.robots),
		issues:  NewIssueTally(),
		outcome: Outcome{Identity: id.Name},
	}
	logger := c.logger.With().Str("identity", id.Name).Logger()

	pager := paginate.New(c.source, id, logger)
	var total extract.Report
	for page, err := range pager.Pages(ctx) {
		if err != nil {
			p.outcome.Err = err
			break
		}
		// Records of a page are folded in before the next page is requested.
		rep, err := c.consume(page, id, p)
		total.Add(rep)
		if err != nil {
			p.outcome.Err = err
			break
		}
	}
	p.outcome.Pages = pager.PageCount()
	p.outcome.Records = total.Records
	p.outcome.Anomalies = total.Anomalies()

	if p.outcome.Err != nil {
		logger.Error().Err(p.outcome.Err).Int("pages", p.outcome.Pages).Msg("query identity failed")
	} else {
		logger.Info().
			Int("pages", p.outcome.Pages).
			Int("records", p.outcome.Records).
			Int("anomalies", p.outcome.Anomalies).
			Msg("query identity done")
	}
	return p
}

func (c *Collector) consume(page *domain.QueryResponse, id domain.QueryIdentity, p partial) (extract.Report, error) {
	switch id.Template {
	case domain.TemplatePullRequests:
		records, rep, err := extract.PullRequests(page)
		if err != nil {
			return rep, err
		}
		p.prs.Add(records...)
		return rep, nil
	case domain.TemplateIssues:
		records, rep, err := extract.Issues(page, id.Event)
		if err != nil {
			return rep, err
		}
		p.issues.Add(records...)
		return rep, nil
	default:
		return extract.Report{}, fmt.Errorf("template %s cannot be collected", id.Template)
	}
}

// DiscoverRepositories lists the repositories of org through the org-repos template.
func DiscoverRepositories(ctx context.Context, source paginate.Source, org string, logger zerolog.Logger) ([]string, error) {
	pager := paginate.New(source, OrgReposIdentity(org), logger)
	var repos []string
	for page, err := range pager.Pages(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of %s: %w", org, err)
		}
		names, rep, err := extract.Repositories(page)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of %s: %w", org, err)
		}
		if rep.Anomalies() > 0 {
			logger.Warn().Int("skipped", rep.Skipped).Msg("repository entries without a name")
		}
		repos = append(repos, names...)
	}
	return repos, nil
}
