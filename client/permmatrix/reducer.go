// Package permmatrix holds the editable role x feature grid of the permissions page.
//
// Server entries and pending edits are kept apart and only merged on read, so a server
// refresh that doesn't change anything never drops local edits.
package permmatrix

import (
	"sort"
	"strings"

	"github.com/trezcool/shule/core/permission"
)

type (
	// Action is applied by Reduce.
	Action interface {
		isAction()
	}

	// ServerLoaded re-syncs the server entries; pending edits are discarded when they changed.
	ServerLoaded struct{ Entries []permission.Entry }

	// Edit sets a cell; a cleared or unknown level means "none".
	Edit struct {
		RoleID  string
		Feature string
		Level   permission.Level
	}

	// Reset drops every pending edit.
	Reset struct{}

	// Submitted folds the pending edits into the server state after a successful save.
	Submitted struct{}
)

func (ServerLoaded) isAction() {}
func (Edit) isAction()         {}
func (Reset) isAction()        {}
func (Submitted) isAction()    {}

// State is a value; Reduce never mutates the one it is given.
type State struct {
	server    permission.Matrix
	pending   permission.Matrix
	signature string
}

func cellKey(roleID, feature string) string { return roleID + "-" + feature }

// signature identifies a server list regardless of its order.
func signature(entries []permission.Entry) string {
	cells := make([]string, 0, len(entries))
	for _, e := range entries {
		cells = append(cells, cellKey(e.RoleID, e.FeatureKey)+"="+string(e.Level))
	}
	sort.Strings(cells)
	return strings.Join(cells, ";")
}

func clone(m permission.Matrix) permission.Matrix {
	c := make(permission.Matrix, len(m))
	for roleID, row := range m {
		r := make(map[string]permission.Level, len(row))
		for f, lvl := range row {
			r[f] = lvl
		}
		c[roleID] = r
	}
	return c
}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case ServerLoaded:
		sig := signature(a.Entries)
		if s.server != nil && sig == s.signature {
			return s
		}
		return State{server: permission.NewMatrix(a.Entries), pending: permission.Matrix{}, signature: sig}

	case Edit:
		if !a.Level.Valid() {
			a.Level = permission.LevelNone
		}
		pending := clone(s.pending)
		if s.serverLevel(a.RoleID, a.Feature) == a.Level {
			delete(pending[a.RoleID], a.Feature)
			if len(pending[a.RoleID]) == 0 {
				delete(pending, a.RoleID)
			}
		} else {
			pending.Set(a.RoleID, a.Feature, a.Level)
		}
		s.pending = pending
		return s

	case Reset:
		s.pending = permission.Matrix{}
		return s

	case Submitted:
		server := clone(s.server)
		for roleID, row := range s.pending {
			for f, lvl := range row {
				server.Set(roleID, f, lvl)
			}
		}
		s.server = server
		s.pending = permission.Matrix{}
		s.signature = signature(server.Entries())
		return s
	}
	return s
}

func (s State) serverLevel(roleID, feature string) permission.Level {
	if s.server == nil {
		return permission.LevelNone
	}
	if lvl := s.server.Get(roleID, feature); lvl.Valid() {
		return lvl
	}
	return permission.LevelNone
}

// View returns the level shown for a cell: the pending edit if any, else the server's.
func (s State) View(roleID, feature string) permission.Level {
	if lvl, ok := s.pending[roleID][feature]; ok {
		return lvl
	}
	return s.serverLevel(roleID, feature)
}

// Dirty reports whether some cells have unsaved edits.
func (s State) Dirty() bool { return len(s.pending) > 0 }

// Edited reports whether a cell has an unsaved edit.
func (s State) Edited(roleID, feature string) bool {
	_, ok := s.pending[roleID][feature]
	return ok
}

// BulkPayload lists every role x feature pair with its merged level; unset cells are "none".
func (s State) BulkPayload(roles []permission.Role, features []permission.Feature) permission.BulkUpdate {
	entries := make([]permission.Entry, 0, len(roles)*len(features))
	for _, r := range roles {
		for _, f := range features {
			entries = append(entries, permission.Entry{RoleID: r.ID, FeatureKey: f.Key, Level: s.View(r.ID, f.Key)})
		}
	}
	return permission.BulkUpdate{Entries: entries}
}
