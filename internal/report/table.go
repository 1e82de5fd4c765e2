// Package report renders the summary tables to files and spreadsheets.
package report

import (
	"strconv"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/naka-gawa/gh-metrics/internal/usecase"
)

// Table names, also used as file names and sheet titles.
const (
	Contributors     = "contributors"
	Repositories     = "repositories"
	RepoParticipants = "repo-participants"
	HighContributors = "high-contributors"
	IssueClosures    = "issue-closures"
)

// Table is one output table with a fixed column schema.
type Table struct {
	Name    string
	Columns []string
	Rows    []domain.Row
	// data is the typed row slice, used for JSON output.
	data any
}

func newTable[T domain.Row](name string, columns []string, rows []T) Table {
	t := Table{Name: name, Columns: columns, Rows: make([]domain.Row, 0, len(rows)), data: rows}
	for _, r := range rows {
		t.Rows = append(t.Rows, r)
	}
	if rows == nil {
		t.data = []T{}
	}
	return t
}

// Tables lays out a summary as report tables, in output order.
func Tables(s usecase.Summary) []Table {
	return []Table{
		newTable(Contributors, domain.ContributorColumns, s.Contributors),
		newTable(Repositories, domain.RepoColumns, s.Repositories),
		newTable(RepoParticipants, domain.RepoParticipantColumns, s.Participants),
		newTable(HighContributors, domain.HighContributorColumns, s.HighContributors),
		newTable(IssueClosures, domain.IssueClosureColumns, s.IssueClosures),
	}
}

// Records returns the header and the rows, each prefixed with a 1-based "#" row index.
func (t Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, append([]string{"#"}, t.Columns...))
	for i, r := range t.Rows {
		records = append(records, append([]string{strconv.Itoa(i + 1)}, r.Values()...))
	}
	return records
}
