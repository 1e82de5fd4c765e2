// Package paginate follows continuation cursors across the pages of one query identity.
package paginate

import (
	"context"
	"errors"
	"iter"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/rs/zerolog"
)

// ErrDone is returned by Next once the sequence is exhausted.
var ErrDone = errors.New("pagination done")

// Source resolves a single page request, through the replay cache or the network.
type Source interface {
	Fetch(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

type state int

const (
	stateStart state = iota
	stateFetching
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateFetching:
		return "fetching"
	default:
		return "done"
	}
}

// Paginator walks the cursor chain of one query identity. It is single use:
// once Done, a new Paginator must be built to fetch the pages again.
type Paginator struct {
	source   Source
	identity domain.QueryIdentity
	logger   zerolog.Logger

	state   state
	request domain.QueryRequest
	seen    map[string]struct{}
	pages   int
}

// New returns a Paginator in the start state.
func New(source Source, identity domain.QueryIdentity, logger zerolog.Logger) *Paginator {
	return &Paginator{
		source:   source,
		identity: identity,
		logger:   logger.With().Str("identity", identity.Name).Logger(),
		state:    stateStart,
		seen:     make(map[string]struct{}),
	}
}

// PageCount returns the number of pages yielded so far.
func (p *Paginator) PageCount() int { return p.pages }

// Done reports whether the paginator reached its final state.
func (p *Paginator) Done() bool { return p.state == stateDone }

// Next fetches the following page. It returns ErrDone when no page is left.
// Any other error is terminal: the paginator moves to Done and never
// resumes the chain.
func (p *Paginator) Next(ctx context.Context) (*domain.QueryResponse, error) {
	switch p.state {
	case stateDone:
		return nil, ErrDone
	case stateStart:
		p.request = domain.NewQueryRequest(p.identity.Template, p.identity.Params)
		p.state = stateFetching
	}

	if err := ctx.Err(); err != nil {
		p.state = stateDone
		return nil, err
	}

	req := p.request
	resp, err := p.source.Fetch(ctx, req)
	if err != nil {
		p.state = stateDone
		return nil, err
	}
	if resp.PageInfo == nil {
		p.state = stateDone
		return nil, &domain.MalformedPageError{Request: req.String(), Reason: "page has no pagination info"}
	}
	p.pages++

	info := resp.PageInfo
	switch {
	case !info.HasNextPage:
		p.state = stateDone
	case info.EndCursor == "":
		p.logger.Warn().Str("request", req.String()).Msg("has_next_page set without end_cursor, stopping pagination")
		p.state = stateDone
	default:
		if _, dup := p.seen[info.EndCursor]; dup {
			p.logger.Warn().Str("request", req.String()).Str("cursor", info.EndCursor).Msg("cursor repeated, stopping pagination")
			p.state = stateDone
			break
		}
		p.seen[info.EndCursor] = struct{}{}
		p.request = req.WithCursor(info.EndCursor)
	}

	p.logger.Debug().
		Int("page", p.pages).
		Bool("cached", resp.Cached).
		Str("next", p.state.String()).
		Msg("page fetched")
	return resp, nil
}

// Pages adapts Next to a range-over-func sequence. A terminal error is
// yielded once as the final element.
func (p *Paginator) Pages(ctx context.Context) iter.Seq2[*domain.QueryResponse, error] {
	return func(yield func(*domain.QueryResponse, error) bool) {
		for {
			resp, err := p.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}
