package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/trezcool/shule/apps/api/di"
	"github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/core/validation"
	"github.com/trezcool/shule/services/email"
	"github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
	"github.com/trezcool/shule/theme"
)

var errMissingToken = "user not authenticated"

// testApp is a Server over a fresh in-memory DB, with one school & its main branch.
type testApp struct {
	*echoapi.Server
	conf    *core.Config
	repos   di.Repos
	svcs    di.Services
	mailSvc *emailsvc.ConsoleService
	tenant  tenant.Tenant
	branch  tenant.Branch
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	repos := di.MemoryRepos(inmemdb.Open())
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	svcs := di.NewServices(conf, repos, cache.NewMemory(), mailSvc, logger)

	validate, translator := validation.New()
	themes, err := theme.NewContext(conf.PrimaryColor)
	if err != nil {
		t.Fatalf("theme.NewContext() failed: %v", err)
	}

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Theme:          themes,
		DisableReqLogs: true,
		Services:       svcs,
	})
	t.Cleanup(func() { _ = srv.Close() })

	tnt, branch := testutil.CreateTenant(t, svcs.Tenants, "Lycee Wima", "wima")
	return &testApp{Server: srv, conf: conf, repos: repos, svcs: svcs, mailSvc: mailSvc, tenant: tnt, branch: branch}
}

func (app *testApp) tenantScope() core.Scope {
	return core.Scope{TenantID: app.tenant.ID}
}

func (app *testApp) branchScope() core.Scope {
	return core.Scope{TenantID: app.tenant.ID, BranchID: app.branch.ID}
}

func (app *testApp) createUser(t *testing.T, scope core.Scope, name, uname, pwd string, roles ...string) user.User {
	return testutil.CreateUser(t, app.repos.Users, scope, name, uname, uname+"@test.cd", pwd, roles, true)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	branch   string // X-Branch-ID
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (tt httpTest) request() (*http.Request, *httptest.ResponseRecorder) {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	if tt.branch != "" {
		req.Header.Set("X-Branch-ID", tt.branch)
	}
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func dataBody(t *testing.T, data interface{}) []byte {
	return marchallObj(t, core.Envelope{Data: data})
}

func listBody(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	return dataBody(t, objs)
}

// pageBody is the first page of a list response holding total items.
func pageBody(t *testing.T, total int, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	return marchallObj(t, core.Envelope{Data: objs, Meta: &core.Meta{Page: 1, PerPage: core.DefaultPerPage, Total: total}})
}

func errBody(t *testing.T, msg string, fields map[string]string) []byte {
	return marchallObj(t, core.Envelope{Error: &core.ErrorBody{Message: msg, Fields: fields}})
}

// decodeData unmarshals the data of an envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("json.Unmarshal(data) failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := tt.request()
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
