package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// trapNoRowsErr maps psql "no rows" err to core.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns core.ErrNotFound when res touched no row.
func checkAffected(res sql.Result, err error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// deleteScoped deletes the row id of tbl when it is visible from scope.
func deleteScoped(ctx context.Context, db *sqlx.DB, tbl string, scope core.Scope, id string) error {
	w := new(where)
	w.scope(scope)
	w.add("id = ?", id)
	res, err := db.ExecContext(ctx, w.sql(db, `DELETE FROM `+tbl), w.args...)
	return checkAffected(res, err, "deleting from "+tbl)
}

// where accumulates AND-ed conditions written with "?" placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) scope(scope core.Scope) {
	w.add("tenant_id = ?", scope.TenantID)
	if scope.BranchID != "" {
		w.add("branch_id = ?", scope.BranchID)
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// sql joins head, the conditions and tail, rebinding "?" to db's bindvars.
func (w *where) sql(db *sqlx.DB, head string, tail ...string) string {
	return db.Rebind(head + w.String() + strings.Join(tail, ""))
}

// pageClause returns the LIMIT/OFFSET tail and the full argument list to go with it.
func pageClause(w *where, page core.Pagination) (string, []interface{}) {
	page.Clean()
	return " LIMIT ? OFFSET ?", append(append([]interface{}{}, w.args...), page.Limit(), page.Offset())
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// jsonColumn stores a value as JSONB.
type jsonColumn[T any] struct {
	V T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	return json.Marshal(c.V)
}

func (c *jsonColumn[T]) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("jsonColumn: cannot scan %T", src)
	}
	return json.Unmarshal(data, &c.V)
}
