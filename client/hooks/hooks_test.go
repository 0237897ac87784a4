package hooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/forms"
	"github.com/trezcool/shule/client/permmatrix"
	"github.com/trezcool/shule/client/query"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/student"
)

const (
	yearA = "0b6a3c56-6c1f-4d5e-9b9e-1f0f7a1b2c3d"
	yearB = "6f1e2d3c-4b5a-4c7d-8e9f-a0b1c2d3e4f5"
)

// fakeAPI is a tiny academic-years & permissions backend counting the requests it serves.
type fakeAPI struct {
	mu       sync.Mutex
	years    []academic.AcademicYear
	entries  []permission.Entry
	unread   int
	requests map[string]int
	total    int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		years: []academic.AcademicYear{{
			ID: yearA, Name: "2023-2024", IsActive: true,
			StartDate: core.NewDate(2023, time.September, 1), EndDate: core.NewDate(2024, time.June, 30),
		}},
		requests: make(map[string]int),
	}
}

func (f *fakeAPI) served(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

func reply(w http.ResponseWriter, code int, env core.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.total, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.Method+" "+r.URL.Path]++

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
	switch {
	case r.Method == http.MethodGet && path == "academic-years":
		reply(w, http.StatusOK, core.Envelope{Data: f.years})
	case r.Method == http.MethodGet && path == "academic-years/active":
		for _, y := range f.years {
			if y.IsActive {
				reply(w, http.StatusOK, core.Envelope{Data: y})
				return
			}
		}
		reply(w, http.StatusNotFound, core.Envelope{Error: &core.ErrorBody{Message: "not found"}})
	case r.Method == http.MethodPost && path == "academic-years":
		var ny academic.NewAcademicYear
		_ = json.NewDecoder(r.Body).Decode(&ny)
		y := academic.AcademicYear{ID: yearB, Name: ny.Name, StartDate: ny.StartDate, EndDate: ny.EndDate}
		f.years = append(f.years, y)
		reply(w, http.StatusCreated, core.Envelope{Data: y})
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/activate"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "academic-years/"), "/activate")
		var active academic.AcademicYear
		for i := range f.years {
			f.years[i].IsActive = f.years[i].ID == id
			if f.years[i].IsActive {
				active = f.years[i]
			}
		}
		reply(w, http.StatusOK, core.Envelope{Data: active})
	case r.Method == http.MethodGet && path == "permissions":
		reply(w, http.StatusOK, core.Envelope{Data: f.entries})
	case r.Method == http.MethodPut && path == "permissions/bulk":
		var bu permission.BulkUpdate
		_ = json.NewDecoder(r.Body).Decode(&bu)
		f.entries = bu.Entries
		reply(w, http.StatusOK, core.Envelope{Data: f.entries})
	case r.Method == http.MethodGet && path == "notifications/unread-count":
		f.unread++
		reply(w, http.StatusOK, core.Envelope{Data: UnreadCount{Count: f.unread}})
	default:
		reply(w, http.StatusNotFound, core.Envelope{Error: &core.ErrorBody{Message: "not found"}})
	}
}

func setup(t *testing.T) (*Hooks, *fakeAPI) {
	t.Helper()
	fake := newFakeAPI()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	api := apiclient.New(srv.URL)
	api.SignIn(apiclient.Session{AccessToken: "token"})
	return New(api, query.New(), forms.New()), fake
}

func TestMutationsValidateBeforeAnyRequest(t *testing.T) {
	h, fake := setup(t)
	ctx := context.Background()

	_, err := h.CreateAcademicYear(ctx, academic.NewAcademicYear{
		Name:      "2024-2025",
		StartDate: core.NewDate(2025, time.June, 30),
		EndDate:   core.NewDate(2024, time.September, 1),
	})
	require.Error(t, err)
	assert.True(t, forms.IsInvalid(err))
	assert.Contains(t, err.(*forms.Error).Fields, "end_date")

	_, err = h.CreateStudent(ctx, student.NewStudent{FirstName: "Jane", Email: "jane@"})
	require.Error(t, err)
	assert.Contains(t, err.(*forms.Error).Fields, "email")
	assert.Contains(t, err.(*forms.Error).Fields, "admission_no")

	st := h.Attendance(ctx, attendance.QueryFilter{From: core.NewDate(2024, time.March, 2), To: core.NewDate(2024, time.March, 1)})
	assert.True(t, st.IsError())
	assert.True(t, forms.IsInvalid(st.Err))

	assert.Zero(t, atomic.LoadInt32(&fake.total))
}

func TestCreateThenActivateUpdatesActiveYear(t *testing.T) {
	h, fake := setup(t)
	ctx := context.Background()

	active := h.ActiveYear(ctx)
	require.True(t, active.IsSuccess())
	assert.Equal(t, yearA, active.Data.ID)
	years := h.AcademicYears(ctx)
	require.True(t, years.IsSuccess())
	assert.Len(t, years.Data, 1)

	y, err := h.CreateAndActivateYear(ctx, academic.NewAcademicYear{
		Name:      " 2024-2025 ",
		StartDate: core.NewDate(2024, time.September, 1),
		EndDate:   core.NewDate(2025, time.June, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, yearB, y.ID)
	assert.Equal(t, "2024-2025", y.Name)

	// the active year comes from the activation response, no refetch
	active = h.ActiveYear(ctx)
	require.True(t, active.IsSuccess())
	assert.Equal(t, yearB, active.Data.ID)
	assert.True(t, active.Data.IsActive)
	assert.False(t, active.Stale)
	assert.Equal(t, 1, fake.served(http.MethodGet, "/api/v1/academic-years/active"))

	// the year list was invalidated and is refetched
	years = h.AcademicYears(ctx)
	require.True(t, years.IsSuccess())
	assert.Len(t, years.Data, 2)
	assert.Equal(t, 2, fake.served(http.MethodGet, "/api/v1/academic-years"))
	for _, yr := range years.Data {
		assert.Equal(t, yr.ID == yearB, yr.IsActive)
	}
}

func TestSavePermissionsSendsEveryPair(t *testing.T) {
	h, fake := setup(t)
	ctx := context.Background()
	roles := []permission.Role{{ID: "r1"}, {ID: "r2"}}
	features := []permission.Feature{{Key: permission.FeatureStudents}, {Key: permission.FeatureGrading}}

	st, err := h.SyncPermissions(ctx, permmatrix.State{})
	require.NoError(t, err)
	st = permmatrix.Reduce(st, permmatrix.Edit{RoleID: "r1", Feature: permission.FeatureGrading, Level: permission.LevelEdit})

	st, err = h.SavePermissions(ctx, st, roles, features)
	require.NoError(t, err)
	assert.False(t, st.Dirty())

	fake.mu.Lock()
	saved := fake.entries
	fake.mu.Unlock()
	require.Len(t, saved, 4)
	for _, e := range saved {
		want := permission.LevelNone
		if e.RoleID == "r1" && e.FeatureKey == permission.FeatureGrading {
			want = permission.LevelEdit
		}
		assert.Equal(t, want, e.Level, "%s/%s", e.RoleID, e.FeatureKey)
	}

	// the refetch after the save shows the saved levels
	st, err = h.SyncPermissions(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, permission.LevelEdit, st.View("r1", permission.FeatureGrading))
	assert.Equal(t, 2, fake.served(http.MethodGet, "/api/v1/permissions"))
}

func TestPollUnreadCount(t *testing.T) {
	h, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var counts []int
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.PollUnreadCount(ctx, 10*time.Millisecond, func(st query.State[UnreadCount]) {
			mu.Lock()
			counts = append(counts, st.Data.Count)
			if len(counts) == 3 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, counts)
	assert.Equal(t, 3, h.UnreadCount(context.Background()).Data.Count)
}
