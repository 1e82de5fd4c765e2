package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRequest_Key(t *testing.T) {
	base := NewQueryRequest(TemplatePullRequests, map[string]string{"query": "repo:o/r is:pr", "scope": "o/r"})
	reordered := NewQueryRequest(TemplatePullRequests, map[string]string{"scope": "o/r", "query": "repo:o/r is:pr"})

	testCases := []struct {
		name  string
		a, b  QueryRequest
		equal bool
	}{
		{name: "same content, different map order", a: base, b: reordered, equal: true},
		{name: "same cursor", a: base.WithCursor("c1"), b: reordered.WithCursor("c1"), equal: true},
		{name: "first page differs from empty cursor", a: base, b: base.WithCursor(""), equal: false},
		{name: "different cursor", a: base.WithCursor("c1"), b: base.WithCursor("c2"), equal: false},
		{name: "different template", a: base, b: NewQueryRequest(TemplateIssues, base.Params()), equal: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.equal {
				assert.Equal(t, tc.a.Key(), tc.b.Key())
			} else {
				assert.NotEqual(t, tc.a.Key(), tc.b.Key())
			}
		})
	}
}

func TestQueryRequest_Immutable(t *testing.T) {
	params := map[string]string{"query": "q"}
	req := NewQueryRequest(TemplateIssues, params)
	params["query"] = "changed"
	assert.Equal(t, "q", req.Param("query"))

	next := req.WithCursor("abc")
	_, ok := req.Cursor()
	assert.False(t, ok)
	cursor, ok := next.Cursor()
	require.True(t, ok)
	assert.Equal(t, "abc", cursor)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Replay")
	require.NoError(t, err)
	assert.Equal(t, ModeReplay, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLive, m)

	_, err = ParseMode("offline")
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	transient := &TransportError{Request: "r", Transient: true, Message: "502"}
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", transient)))
	assert.False(t, IsTransient(&TransportError{Request: "r", Message: "401"}))
	assert.False(t, IsTransient(errors.New("plain")))
}
