package permission

import (
	"context"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	ErrRoleNameExists = errors.New("a role with this name already exists")
	ErrUnknownRole    = errors.New("unknown role")

	userRoleTag  = "userrole"
	userRoleText = "{0} must be one of the user roles"

	levelTag  = "permlevel"
	levelText = "{0} must be one of none, view or edit"

	featureTag  = "feature"
	featureText = "{0} must be a known feature"
)

type Repository interface {
	CreateRole(ctx context.Context, r Role) (Role, error)
	QueryRoles(ctx context.Context, tenantID string) ([]Role, error)
	DeleteRole(ctx context.Context, tenantID, id string) error

	QueryEntries(ctx context.Context, tenantID string) ([]Entry, error)
	// ReplaceEntries swaps every entry of the tenant for entries, atomically.
	ReplaceEntries(ctx context.Context, tenantID string, entries []Entry) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// InitValidators registers the permission validations & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, func(fl validator.FieldLevel) bool {
		return user.RolePriority(fl.Field().String()) > 0
	})
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)

	_ = validate.RegisterValidation(levelTag, func(fl validator.FieldLevel) bool {
		return Level(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)

	_ = validate.RegisterValidation(featureTag, func(fl validator.FieldLevel) bool {
		return IsFeature(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, featureTag, featureText)
}

func (svc *Service) CreateRole(ctx context.Context, tenantID string, nr NewRole) (Role, error) {
	roles, err := svc.repo.QueryRoles(ctx, tenantID)
	if err != nil {
		return Role{}, errors.Wrap(err, "querying roles")
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, nr.Name) {
			return Role{}, core.NewFieldError("name", ErrRoleNameExists)
		}
	}
	return svc.repo.CreateRole(ctx, Role{
		ID:          core.NewID(),
		TenantID:    tenantID,
		Name:        nr.Name,
		Key:         nr.Key,
		Description: nr.Description,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) Roles(ctx context.Context, tenantID string) ([]Role, error) {
	return svc.repo.QueryRoles(ctx, tenantID)
}

func (svc *Service) DeleteRole(ctx context.Context, tenantID, id string) error {
	return svc.repo.DeleteRole(ctx, tenantID, id)
}

func (svc *Service) Entries(ctx context.Context, tenantID string) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, tenantID)
}

// BulkUpdate replaces the whole matrix of the tenant. Every role x feature pair is stored:
// pairs missing from bu are saved as LevelNone.
func (svc *Service) BulkUpdate(ctx context.Context, tenantID string, bu BulkUpdate) ([]Entry, error) {
	roles, err := svc.repo.QueryRoles(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "querying roles")
	}
	known := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		known[r.ID] = struct{}{}
	}

	given := make(Matrix)
	for _, e := range bu.Entries {
		if _, ok := known[e.RoleID]; !ok {
			return nil, core.NewFieldError("entries", errors.Wrap(ErrUnknownRole, e.RoleID))
		}
		given.Set(e.RoleID, e.FeatureKey, e.Level)
	}

	entries := make([]Entry, 0, len(roles)*len(Features))
	for _, r := range roles {
		for _, f := range Features {
			entries = append(entries, Entry{RoleID: r.ID, FeatureKey: f.Key, Level: given.Get(r.ID, f.Key)})
		}
	}
	if err := svc.repo.ReplaceEntries(ctx, tenantID, entries); err != nil {
		return nil, errors.Wrap(err, "replacing permission entries")
	}
	return entries, nil
}

// roleApplies reports whether a role keyed key covers one of the user roles.
func roleApplies(key string, userRoles []string) bool {
	for _, ur := range userRoles {
		if strings.HasPrefix(ur, key) {
			return true
		}
	}
	return false
}

// LevelsFor returns the highest level per feature over every tenant role matching userRoles.
func (svc *Service) LevelsFor(ctx context.Context, tenantID string, userRoles []string) (map[string]Level, error) {
	roles, err := svc.repo.QueryRoles(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "querying roles")
	}
	entries, err := svc.repo.QueryEntries(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "querying permission entries")
	}
	m := NewMatrix(entries)

	levels := make(map[string]Level, len(Features))
	for _, f := range Features {
		levels[f.Key] = LevelNone
	}
	for _, r := range roles {
		if !roleApplies(r.Key, userRoles) {
			continue
		}
		for _, f := range Features {
			levels[f.Key] = Max(levels[f.Key], m.Get(r.ID, f.Key))
		}
	}
	return levels, nil
}

// LevelFor returns the level userRoles hold on feature.
func (svc *Service) LevelFor(ctx context.Context, tenantID string, userRoles []string, feature string) (Level, error) {
	levels, err := svc.LevelsFor(ctx, tenantID, userRoles)
	if err != nil {
		return LevelNone, err
	}
	return levels[feature], nil
}
