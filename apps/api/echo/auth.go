package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

const (
	contextUserKey  = "user"
	contextScopeKey = "scope"
	headerBranchID  = "X-Branch-ID"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	TenantID     string   `json:"tid"`
	BranchID     string   `json:"bid,omitempty"` // empty: every branch of the tenant
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

func (c Claims) Scope() core.Scope {
	return core.Scope{TenantID: c.TenantID, BranchID: c.BranchID}
}

type authenticator struct {
	conf      *core.Config
	users     *user.Service
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, users *user.Service) *authenticator {
	return &authenticator{
		conf:  conf,
		users: users,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "userToken",
			Claims:        new(Claims),
		},
	}
}

func issuer(conf *core.Config) string {
	if conf.AuthProvider.URL != "" {
		return conf.AuthProvider.URL
	}
	return conf.AppName
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer(conf),
			Subject:   usr.ID,
			Audience:  "authenticated",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		TenantID:     usr.TenantID,
		BranchID:     usr.BranchID,
		Username:     usr.Username,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// session is the body returned by login & token refresh.
type session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        user.User `json:"user"`
}

func (a *authenticator) newSession(usr user.User, origIat ...int64) (session, error) {
	claims := GetUserClaims(a.conf, usr, origIat...)
	token, err := GenerateToken(a.conf, claims)
	if err != nil {
		return session{}, errors.Wrap(err, "generating token")
	}
	return session{AccessToken: token, ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(), User: usr}, nil
}

func (a *authenticator) authenticate(ctx echo.Context, uname, pwd string) (session, error) {
	c := ctx.Request().Context()
	usr, err := a.users.GetByUsernameOrEmail(c, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return session{}, errAuthenticationFailed
		}
		return session{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return session{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return session{}, errAccountDeactivated
	}
	usr, err = a.users.SetLastLogin(c, usr)
	if err != nil {
		return session{}, errors.Wrap(err, "setting lastLogin")
	}
	return a.newSession(usr)
}

func (a *authenticator) refresh(ctx echo.Context) (session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return session{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := a.contextUser(ctx)
	if err != nil {
		return session{}, errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return session{}, errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return session{}, errRefreshExpired
	}
	return a.newSession(usr, claims.OrigIssuedAt)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get("userToken").(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextUser loads the authenticated user once per request.
func (a *authenticator) contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}
	usr, err := a.users.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}

// scopeMiddleware resolves the tenant/branch scope of the request from the token.
// Tenant-wide users may narrow it to one branch with the X-Branch-ID header.
func (a *authenticator) scopeMiddleware(tenants *tenant.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			scope := claims.Scope()
			if err := scope.Validate(); err != nil {
				return errUnauthorized
			}

			if branchID := ctx.Request().Header.Get(headerBranchID); branchID != "" && branchID != scope.BranchID {
				if scope.BranchID != "" {
					return errBranchForbidden
				}
				branches, err := tenants.Branches(ctx.Request().Context(), scope.TenantID)
				if err != nil {
					return errors.Wrap(err, "querying branches")
				}
				found := false
				for _, b := range branches {
					if b.ID == branchID {
						found = true
						break
					}
				}
				if !found {
					return errBranchForbidden
				}
				scope.BranchID = branchID
			}

			ctx.Set(contextScopeKey, scope)
			return next(ctx)
		}
	}
}

func contextScope(ctx echo.Context) core.Scope {
	scope, _ := ctx.Get(contextScopeKey).(core.Scope)
	return scope
}

// optionalJWT authenticates requests carrying a token and lets anonymous ones through.
func (a *authenticator) optionalJWT() echo.MiddlewareFunc {
	conf := a.jwtConfig
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(conf)
}
