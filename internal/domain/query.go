// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Query template identifiers understood by the gateway.
const (
	TemplatePullRequests = "pull-requests"
	TemplateIssues       = "issues"
	TemplateOrgRepos     = "org-repos"
)

// Mode selects how the replay cache participates in a run.
type Mode string

const (
	// ModeLive fetches every page and writes it through to the cache.
	ModeLive Mode = "live"
	// ModeReplay serves pages from the cache only; a miss is fatal.
	ModeReplay Mode = "replay"
	// ModeResume serves cached pages and fetches (and stores) the missing ones.
	ModeResume Mode = "resume"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLive, ModeReplay, ModeResume:
		return m, nil
	case "":
		return ModeLive, nil
	default:
		return "", fmt.Errorf("unknown cache mode %q", s)
	}
}

// QueryIdentity names a reusable remote query: a template plus its fixed parameters.
type QueryIdentity struct {
	Name     string
	Template string
	Params   map[string]string
	// Event is set on issue searches and tells which side the matches count towards.
	Event IssueEvent
}

// QueryRequest is one page request. It is immutable once constructed;
// use WithCursor to derive the request for the following page.
type QueryRequest struct {
	template string
	params   map[string]string
	cursor   *string
}

// NewQueryRequest builds a first-page request. The params map is copied.
func NewQueryRequest(template string, params map[string]string) QueryRequest {
	return QueryRequest{template: template, params: maps.Clone(params)}
}

// Template returns the template identifier.
func (r QueryRequest) Template() string { return r.template }

// Param returns a named parameter, or "" when unset.
func (r QueryRequest) Param(name string) string { return r.params[name] }

// Params returns a copy of the parameters.
func (r QueryRequest) Params() map[string]string { return maps.Clone(r.params) }

// Cursor returns the pagination cursor and whether one is set.
func (r QueryRequest) Cursor() (string, bool) {
	if r.cursor == nil {
		return "", false
	}
	return *r.cursor, true
}

// WithCursor returns a copy of the request positioned at cursor.
func (r QueryRequest) WithCursor(cursor string) QueryRequest {
	return QueryRequest{template: r.template, params: maps.Clone(r.params), cursor: &cursor}
}

// String is used in log lines and error messages.
func (r QueryRequest) String() string {
	keys := slices.Sorted(maps.Keys(r.params))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r.params[k])
	}
	cursor := "<start>"
	if r.cursor != nil {
		cursor = *r.cursor
	}
	return fmt.Sprintf("%s{%s} cursor=%s", r.template, strings.Join(parts, ","), cursor)
}

// CacheKey addresses one stored page. Identical request content always
// yields the identical key.
type CacheKey struct {
	Template string
	Digest   string
}

// String renders the key as "<template>/<digest>".
func (k CacheKey) String() string { return k.Template + "/" + k.Digest }

// Key derives the cache key of the request.
func (r QueryRequest) Key() CacheKey {
	// encoding/json sorts map keys, which makes the document canonical.
	doc := struct {
		Template string            `json:"template"`
		Params   map[string]string `json:"params"`
		Cursor   *string           `json:"cursor"`
	}{r.template, r.params, r.cursor}
	if doc.Params == nil {
		doc.Params = map[string]string{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		// string maps and strings always marshal
		panic(err)
	}
	sum := sha256.Sum256(b)
	return CacheKey{Template: r.template, Digest: hex.EncodeToString(sum[:])}
}

// PageInfo is the pagination metadata of a page.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor,omitempty"`
}

// QueryResponse is one raw page: the decoded page document plus its
// pagination metadata. PageInfo is nil when the page did not carry any.
type QueryResponse struct {
	Template string
	Payload  json.RawMessage
	PageInfo *PageInfo
	// Cached is true when the page was served from the replay cache.
	Cached bool
}
