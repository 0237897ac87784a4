package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/user"
)

func Test_permissionApi_bulkUpdate(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, app.tenantScope(), "Admin", "admin", "", user.RoleAdmin)
	teacher := app.createUser(t, app.branchScope(), "Teacher", "teacher", "", user.RoleTeacher)
	adminToken := app.getToken(t, admin)

	createRole := func(nr permission.NewRole) permission.Role {
		req, rec := newAuthRequest(http.MethodPost, "/api/v1/roles", adminToken, marchallObj(t, nr))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var r permission.Role
		decodeData(t, rec, &r)
		return r
	}
	teachers := createRole(permission.NewRole{Name: "Teachers", Key: user.RoleTeacher})
	parents := createRole(permission.NewRole{Name: "Parents", Key: user.RoleParent})

	runHTTPTests(t, app, []httpTest{
		{
			name: "duplicate role name", method: http.MethodPost, path: "/api/v1/roles", token: adminToken,
			body:     marchallObj(t, permission.NewRole{Name: "teachers", Key: user.RoleStaff}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, permission.ErrRoleNameExists.Error(), map[string]string{"name": permission.ErrRoleNameExists.Error()}),
		},
		{
			name: "unknown user role", method: http.MethodPost, path: "/api/v1/roles", token: adminToken,
			body:     marchallObj(t, permission.NewRole{Name: "Lol", Key: "lol:"}),
			wantCode: http.StatusBadRequest,
			wantData: errBody(t, "invalid data", map[string]string{"key": "key must be one of the user roles"}),
		},
		{
			name: "unknown level", method: http.MethodPut, path: "/api/v1/permissions/bulk", token: adminToken,
			body:     []byte(`{"entries":[{"role_id":"` + teachers.ID + `","feature_key":"students","level":"root"}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown feature", method: http.MethodPut, path: "/api/v1/permissions/bulk", token: adminToken,
			body:     []byte(`{"entries":[{"role_id":"` + teachers.ID + `","feature_key":"lol","level":"view"}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "teachers cannot manage permissions", method: http.MethodPut, path: "/api/v1/permissions/bulk", token: app.getToken(t, teacher),
			body:     []byte(`{"entries":[]}`),
			wantCode: http.StatusForbidden, wantData: errBody(t, "permission denied", nil),
		},
	})

	t.Run("every pair is saved", func(t *testing.T) {
		body := marchallObj(t, permission.BulkUpdate{Entries: []permission.Entry{
			{RoleID: teachers.ID, FeatureKey: permission.FeatureAttendance, Level: permission.LevelEdit},
			{RoleID: teachers.ID, FeatureKey: permission.FeatureStudents, Level: permission.LevelView},
		}})
		req, rec := newAuthRequest(http.MethodPut, "/api/v1/permissions/bulk", adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/api/v1/permissions", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var entries []permission.Entry
		decodeData(t, rec, &entries)
		require.Len(t, entries, 2*len(permission.Features))

		m := permission.NewMatrix(entries)
		for _, f := range permission.Features {
			assert.Equal(t, permission.LevelNone, m.Get(parents.ID, f.Key), "parents/%s", f.Key)
		}
		assert.Equal(t, permission.LevelEdit, m.Get(teachers.ID, permission.FeatureAttendance))
		assert.Equal(t, permission.LevelView, m.Get(teachers.ID, permission.FeatureStudents))
		assert.Equal(t, permission.LevelNone, m.Get(teachers.ID, permission.FeatureUsers))
	})

	t.Run("levels of the authenticated user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/permissions/me", app.getToken(t, teacher))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var levels map[string]permission.Level
		decodeData(t, rec, &levels)
		assert.Len(t, levels, len(permission.Features))
		assert.Equal(t, permission.LevelEdit, levels[permission.FeatureAttendance])
		assert.Equal(t, permission.LevelView, levels[permission.FeatureStudents])
		assert.Equal(t, permission.LevelNone, levels[permission.FeaturePermissions])

		req, rec = newAuthRequest(http.MethodGet, "/api/v1/permissions/me", adminToken)
		app.ServeHTTP(rec, req)
		decodeData(t, rec, &levels)
		for _, f := range permission.Features {
			assert.Equal(t, permission.LevelEdit, levels[f.Key], f.Key)
		}
	})

	t.Run("features catalogue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/v1/features", app.getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: dataBody(t, permission.Features)}, rec)
	})
}
