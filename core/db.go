package core

import (
	"context"
	"database/sql"
	"strings"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		PingContext(ctx context.Context) error
		Close() error
	}
)

// Scope partitions all tenant data: a school (tenant) and one of its branches.
// An empty BranchID means "all branches of the tenant".
type Scope struct {
	TenantID string `json:"tenant_id"`
	BranchID string `json:"branch_id"`
}

func (s Scope) Validate() error {
	if s.TenantID == "" {
		return ErrInvalidScope
	}
	return nil
}

// Contains reports whether a record scoped to (tenantID, branchID) is visible from s.
func (s Scope) Contains(tenantID, branchID string) bool {
	if s.TenantID != tenantID {
		return false
	}
	return s.BranchID == "" || s.BranchID == branchID
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause renders orderings restricted to allowed columns ({field: column}).
// Unknown fields are ignored; fallback is used when nothing is left.
func OrderByClause(orderings []DBOrdering, allowed map[string]string, fallback string) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, ", ")
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 200
)

type Pagination struct {
	Page    int `query:"page" json:"page"`
	PerPage int `query:"per_page" json:"per_page"`
}

func (p *Pagination) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	} else if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }
func (p Pagination) Limit() int  { return p.PerPage }

// Window returns the [start, end) bounds of the page within n items.
func (p Pagination) Window(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit()
	if end > n {
		end = n
	}
	return start, end
}

// Paged is a page of results plus the total count of matching rows.
type Paged[T any] struct {
	Items []T
	Total int
	Pagination
}
