package tenant

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var ErrSlugExists = errors.New("a school with this slug already exists")

type Tenant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	PrimaryColor string    `json:"primary_color"` // empty: app default
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Branch struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type NewTenant struct {
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug" validate:"required,alphanum_"`
	PrimaryColor string `json:"primary_color" validate:"omitempty,hexcolor"`
	BranchName   string `json:"branch_name"`
}

func (nt *NewTenant) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Slug = core.CleanString(nt.Slug, true /* lower */)
	nt.PrimaryColor = core.CleanString(nt.PrimaryColor, true /* lower */)
	nt.BranchName = core.CleanString(nt.BranchName)
	return validate.Struct(nt)
}

type UpdateTheme struct {
	PrimaryColor string `json:"primary_color" validate:"required,hexcolor"`
}

func (ut *UpdateTheme) Validate(validate *validator.Validate) error {
	ut.PrimaryColor = core.CleanString(ut.PrimaryColor, true /* lower */)
	return validate.Struct(ut)
}

type Repository interface {
	CreateTenant(ctx context.Context, t Tenant, main Branch) (Tenant, error)
	GetTenant(ctx context.Context, id string) (Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)
	UpdateTenant(ctx context.Context, t Tenant) (Tenant, error)
	CreateBranch(ctx context.Context, b Branch) (Branch, error)
	QueryBranches(ctx context.Context, tenantID string) ([]Branch, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a school along with its main branch.
func (svc *Service) Create(ctx context.Context, nt NewTenant) (Tenant, Branch, error) {
	if _, err := svc.repo.GetTenantBySlug(ctx, nt.Slug); err == nil {
		return Tenant{}, Branch{}, core.NewFieldError("slug", ErrSlugExists)
	} else if !core.IsNotFound(err) {
		return Tenant{}, Branch{}, errors.Wrap(err, "checking slug")
	}

	now := time.Now().UTC()
	t := Tenant{
		ID:           core.NewID(),
		Name:         nt.Name,
		Slug:         nt.Slug,
		PrimaryColor: nt.PrimaryColor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	branchName := nt.BranchName
	if branchName == "" {
		branchName = "Main"
	}
	b := Branch{ID: core.NewID(), TenantID: t.ID, Name: branchName, CreatedAt: now}

	t, err := svc.repo.CreateTenant(ctx, t, b)
	if err != nil {
		return Tenant{}, Branch{}, errors.Wrap(err, "creating tenant")
	}
	return t, b, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Tenant, error) {
	return svc.repo.GetTenant(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Tenant, error) {
	return svc.repo.GetTenantBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) SetPrimaryColor(ctx context.Context, id string, data UpdateTheme) (Tenant, error) {
	t, err := svc.repo.GetTenant(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	t.PrimaryColor = data.PrimaryColor
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTenant(ctx, t)
}

func (svc *Service) AddBranch(ctx context.Context, tenantID, name string) (Branch, error) {
	name = core.CleanString(name)
	if name == "" {
		return Branch{}, core.NewFieldError("name", errors.New("this field is required"))
	}
	if _, err := svc.repo.GetTenant(ctx, tenantID); err != nil {
		return Branch{}, err
	}
	return svc.repo.CreateBranch(ctx, Branch{ID: core.NewID(), TenantID: tenantID, Name: name, CreatedAt: time.Now().UTC()})
}

func (svc *Service) Branches(ctx context.Context, tenantID string) ([]Branch, error) {
	return svc.repo.QueryBranches(ctx, tenantID)
}
