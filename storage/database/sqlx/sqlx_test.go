package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestWhere(t *testing.T) {
	pg := sqlx.NewDb(new(sql.DB), "postgres")

	tests := []struct {
		name     string
		build    func(w *where)
		tail     []string
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "no conditions",
			build:    func(w *where) {},
			tail:     []string{" ORDER BY name"},
			wantSQL:  "SELECT * FROM staff ORDER BY name",
			wantArgs: nil,
		},
		{
			name:     "tenant-wide scope",
			build:    func(w *where) { w.scope(core.Scope{TenantID: "t"}) },
			wantSQL:  "SELECT * FROM staff WHERE tenant_id = $1",
			wantArgs: []interface{}{"t"},
		},
		{
			name: "branch scope and several args in one condition",
			build: func(w *where) {
				w.scope(core.Scope{TenantID: "t", BranchID: "b"})
				w.add("(first_name ILIKE ? OR email ILIKE ?)", "%a%", "%a%")
				w.add("is_active")
			},
			tail:     []string{" ORDER BY name"},
			wantSQL:  "SELECT * FROM staff WHERE tenant_id = $1 AND branch_id = $2 AND (first_name ILIKE $3 OR email ILIKE $4) AND is_active ORDER BY name",
			wantArgs: []interface{}{"t", "b", "%a%", "%a%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := new(where)
			tt.build(w)
			assert.Equal(t, tt.wantSQL, w.sql(pg, "SELECT * FROM staff", tt.tail...))
			assert.Equal(t, tt.wantArgs, w.args)
		})
	}

	t.Run("pagination follows the conditions", func(t *testing.T) {
		w := new(where)
		w.scope(core.Scope{TenantID: "t"})
		limit, args := pageClause(w, core.Pagination{Page: 3, PerPage: 10})
		assert.Equal(t, "SELECT * FROM staff WHERE tenant_id = $1 LIMIT $2 OFFSET $3", w.sql(pg, "SELECT * FROM staff", limit))
		assert.Equal(t, []interface{}{"t", 10, 20}, args)
		assert.Len(t, w.args, 1, "the page arguments are not added to the conditions")
	})
}
