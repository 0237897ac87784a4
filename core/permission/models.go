package permission

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// Level is the access granted to a role on a feature; levels are ordered.
type Level string

const (
	LevelNone Level = "none"
	LevelView Level = "view"
	LevelEdit Level = "edit"
)

var levelRanks = map[Level]int{LevelNone: 0, LevelView: 1, LevelEdit: 2}

func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Allows reports whether l grants at least want.
func (l Level) Allows(want Level) bool {
	return levelRanks[l] >= levelRanks[want]
}

// Max returns the highest of the two levels.
func Max(a, b Level) Level {
	if levelRanks[b] > levelRanks[a] {
		return b
	}
	return a
}

// Feature keys
const (
	FeatureStudents      = "students"
	FeatureStaff         = "staff"
	FeatureUsers         = "users"
	FeatureAttendance    = "attendance"
	FeatureAcademic      = "academic"
	FeatureSchedule      = "schedule"
	FeatureGrading       = "grading"
	FeaturePermissions   = "permissions"
	FeatureNotifications = "notifications"
)

type Feature struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Features is the global catalogue.
var Features = []Feature{
	{Key: FeatureStudents, Name: "Students"},
	{Key: FeatureStaff, Name: "Staff"},
	{Key: FeatureUsers, Name: "Users"},
	{Key: FeatureAttendance, Name: "Attendance"},
	{Key: FeatureAcademic, Name: "Academic settings"},
	{Key: FeatureSchedule, Name: "Schedule settings"},
	{Key: FeatureGrading, Name: "Grading"},
	{Key: FeaturePermissions, Name: "Permissions"},
	{Key: FeatureNotifications, Name: "Notifications"},
}

func IsFeature(key string) bool {
	for _, f := range Features {
		if f.Key == key {
			return true
		}
	}
	return false
}

// Role is a tenant defined permission group. Key matches the user roles it applies to (e.g. "teacher:").
type Role struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewRole struct {
	Name        string `json:"name" validate:"required,max=50"`
	Key         string `json:"key" validate:"required,userrole"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

func (nr *NewRole) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Key = core.CleanString(nr.Key, true /* lower */)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

// Entry is the level of one role on one feature.
type Entry struct {
	RoleID     string `json:"role_id" validate:"required,uuid"`
	FeatureKey string `json:"feature_key" validate:"required,feature"`
	Level      Level  `json:"level" validate:"required,permlevel"`
}

type BulkUpdate struct {
	Entries []Entry `json:"entries" validate:"dive"`
}

func (bu *BulkUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(bu)
}

// Matrix indexes entries by role then feature.
type Matrix map[string]map[string]Level

func NewMatrix(entries []Entry) Matrix {
	m := make(Matrix)
	for _, e := range entries {
		m.Set(e.RoleID, e.FeatureKey, e.Level)
	}
	return m
}

func (m Matrix) Set(roleID, feature string, level Level) {
	if m[roleID] == nil {
		m[roleID] = make(map[string]Level)
	}
	m[roleID][feature] = level
}

// Get returns LevelNone for unset cells.
func (m Matrix) Get(roleID, feature string) Level {
	if lvl, ok := m[roleID][feature]; ok {
		return lvl
	}
	return LevelNone
}

// Entries flattens the matrix, sorted by role then feature.
func (m Matrix) Entries() []Entry {
	entries := make([]Entry, 0, len(m))
	for roleID, row := range m {
		for f, lvl := range row {
			entries = append(entries, Entry{RoleID: roleID, FeatureKey: f, Level: lvl})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RoleID != entries[j].RoleID {
			return entries[i].RoleID < entries[j].RoleID
		}
		return entries[i].FeatureKey < entries[j].FeatureKey
	})
	return entries
}
