package domain

import "time"

// ActorKind tags the variant of an Actor.
type ActorKind int

const (
	// ActorNone is an absent actor (deleted account, unmerged PR).
	ActorNone ActorKind = iota
	// ActorUser is a regular user account.
	ActorUser
	// ActorOther covers bots, organizations, mannequins and unknown actor types.
	ActorOther
)

// Actor is the decoded form of a polymorphic GitHub actor.
type Actor struct {
	Kind  ActorKind
	Login string
}

// User builds a user actor.
func User(login string) Actor { return Actor{Kind: ActorUser, Login: login} }

// UserLogin returns the login when the actor is a user.
func (a Actor) UserLogin() (string, bool) {
	if a.Kind != ActorUser || a.Login == "" {
		return "", false
	}
	return a.Login, true
}

// Review is one review event on a pull request.
type Review struct {
	Author      Actor
	State       string
	SubmittedAt time.Time
}

// PullRequestActivity is the flat record extracted for one pull request.
// The unique key is (Repository, Number).
type PullRequestActivity struct {
	Repository string
	Number     int
	CreatedAt  time.Time
	Merged     bool
	MergedAt   time.Time
	Author     Actor
	MergedBy   Actor
	// Reviews keeps one entry per review event, in API order.
	Reviews []Review
	// Participants holds unique user logins in API order.
	Participants []string

	// Fetched vs reported counts are kept apart; the API may report more
	// than the first page of nodes it returned.
	ReviewsFetched      int
	ReviewsTotal        int
	ParticipantsFetched int
	ParticipantsTotal   int
}

// Key returns the deduplication key of the record.
func (p PullRequestActivity) Key() RecordKey {
	return RecordKey{Repository: p.Repository, Number: p.Number}
}

// Truncated reports whether the API returned fewer nodes than it counted.
func (p PullRequestActivity) Truncated() bool {
	return p.ReviewsTotal > p.ReviewsFetched || p.ParticipantsTotal > p.ParticipantsFetched
}

// RecordKey identifies a pull request or issue across pages.
type RecordKey struct {
	Repository string
	Number     int
}

// IssueEvent tells which side of the issue-closure report an issue counts towards.
type IssueEvent string

const (
	IssueOpened IssueEvent = "opened"
	IssueClosed IssueEvent = "closed"
)

// IssueActivity is one issue matched by an opened/closed search.
type IssueActivity struct {
	Repository string
	Number     int
	Event      IssueEvent
}
