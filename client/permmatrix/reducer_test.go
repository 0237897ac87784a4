package permmatrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/permission"
)

var (
	roles = []permission.Role{{ID: "r1", Name: "Teachers"}, {ID: "r2", Name: "Accountants"}}
	feats = []permission.Feature{{Key: permission.FeatureStudents}, {Key: permission.FeatureAttendance}}

	serverEntries = []permission.Entry{
		{RoleID: "r1", FeatureKey: permission.FeatureStudents, Level: permission.LevelView},
		{RoleID: "r1", FeatureKey: permission.FeatureAttendance, Level: permission.LevelEdit},
	}
)

func loaded() State {
	return Reduce(State{}, ServerLoaded{Entries: serverEntries})
}

func TestViewMergesPendingEdits(t *testing.T) {
	s := loaded()
	s = Reduce(s, Edit{RoleID: "r2", Feature: permission.FeatureStudents, Level: permission.LevelEdit})

	assert.Equal(t, permission.LevelView, s.View("r1", permission.FeatureStudents))
	assert.Equal(t, permission.LevelEdit, s.View("r2", permission.FeatureStudents))
	assert.Equal(t, permission.LevelNone, s.View("r2", permission.FeatureAttendance))
	assert.True(t, s.Dirty())
	assert.True(t, s.Edited("r2", permission.FeatureStudents))
}

func TestEditBackToServerValueIsClean(t *testing.T) {
	s := loaded()
	s = Reduce(s, Edit{RoleID: "r1", Feature: permission.FeatureStudents, Level: permission.LevelNone})
	assert.True(t, s.Dirty())
	s = Reduce(s, Edit{RoleID: "r1", Feature: permission.FeatureStudents, Level: permission.LevelView})
	assert.False(t, s.Dirty())
}

func TestReduceDoesNotMutate(t *testing.T) {
	s := loaded()
	edited := Reduce(s, Edit{RoleID: "r2", Feature: permission.FeatureStudents, Level: permission.LevelEdit})
	assert.False(t, s.Dirty())
	assert.True(t, edited.Dirty())
}

func TestServerLoaded(t *testing.T) {
	s := Reduce(loaded(), Edit{RoleID: "r2", Feature: permission.FeatureStudents, Level: permission.LevelEdit})

	// same list (any order) keeps the edits
	reordered := []permission.Entry{serverEntries[1], serverEntries[0]}
	s = Reduce(s, ServerLoaded{Entries: reordered})
	assert.True(t, s.Dirty())

	// a changed list discards them
	changed := append([]permission.Entry{}, serverEntries...)
	changed[0].Level = permission.LevelEdit
	s = Reduce(s, ServerLoaded{Entries: changed})
	assert.False(t, s.Dirty())
	assert.Equal(t, permission.LevelEdit, s.View("r1", permission.FeatureStudents))
	assert.Equal(t, permission.LevelNone, s.View("r2", permission.FeatureStudents))
}

func TestResetAndSubmitted(t *testing.T) {
	s := Reduce(loaded(), Edit{RoleID: "r2", Feature: permission.FeatureStudents, Level: permission.LevelEdit})
	assert.False(t, Reduce(s, Reset{}).Dirty())
	assert.Equal(t, permission.LevelNone, Reduce(s, Reset{}).View("r2", permission.FeatureStudents))

	s = Reduce(s, Submitted{})
	assert.False(t, s.Dirty())
	assert.Equal(t, permission.LevelEdit, s.View("r2", permission.FeatureStudents))

	// the refetch following the save returns what was submitted: nothing to discard
	s = Reduce(s, Edit{RoleID: "r1", Feature: permission.FeatureStudents, Level: permission.LevelEdit})
	s = Reduce(s, ServerLoaded{Entries: append(serverEntries, permission.Entry{
		RoleID: "r2", FeatureKey: permission.FeatureStudents, Level: permission.LevelEdit,
	})})
	assert.True(t, s.Dirty())
}

func TestBulkPayloadCoversEveryPair(t *testing.T) {
	s := Reduce(loaded(), Edit{RoleID: "r2", Feature: permission.FeatureAttendance, Level: permission.LevelView})

	assert.Equal(t, []permission.Entry{
		{RoleID: "r1", FeatureKey: permission.FeatureStudents, Level: permission.LevelView},
		{RoleID: "r1", FeatureKey: permission.FeatureAttendance, Level: permission.LevelEdit},
		{RoleID: "r2", FeatureKey: permission.FeatureStudents, Level: permission.LevelNone},
		{RoleID: "r2", FeatureKey: permission.FeatureAttendance, Level: permission.LevelView},
	}, s.BulkPayload(roles, feats).Entries)

	assert.Len(t, State{}.BulkPayload(roles, feats).Entries, 4)
	for _, e := range (State{}).BulkPayload(roles, feats).Entries {
		assert.Equal(t, permission.LevelNone, e.Level)
	}
}

func TestEditClearedOrUnknownLevelIsNone(t *testing.T) {
	s := Reduce(State{}, ServerLoaded{Entries: []permission.Entry{
		{RoleID: "r1", FeatureKey: permission.FeatureStudents, Level: permission.LevelEdit},
	}})
	s = Reduce(s, Edit{RoleID: "r1", Feature: permission.FeatureStudents, Level: ""})
	s = Reduce(s, Edit{RoleID: "r1", Feature: permission.FeatureStaff, Level: "admin"})

	assert.Equal(t, permission.LevelNone, s.View("r1", permission.FeatureStudents))
	assert.True(t, s.Edited("r1", permission.FeatureStudents))
	// none is already the server level of an unset cell
	assert.False(t, s.Edited("r1", permission.FeatureStaff))

	staff := []permission.Feature{{Key: permission.FeatureStudents}, {Key: permission.FeatureStaff}}
	for _, e := range s.BulkPayload(roles[:1], staff).Entries {
		assert.Equal(t, permission.LevelNone, e.Level, e.FeatureKey)
		assert.True(t, e.Level.Valid())
	}
}

func TestUnknownServerLevelShowsAsNone(t *testing.T) {
	s := Reduce(State{}, ServerLoaded{Entries: []permission.Entry{
		{RoleID: "r1", FeatureKey: permission.FeatureStudents, Level: "owner"},
	}})
	assert.Equal(t, permission.LevelNone, s.View("r1", permission.FeatureStudents))
	assert.Equal(t, permission.LevelNone, s.BulkPayload(roles[:1], feats[:1]).Entries[0].Level)
}
