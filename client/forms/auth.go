package forms

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type Login struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Clean() {
	l.Username = core.CleanString(l.Username, true /* lower */)
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (p *PasswordResetRequest) Clean() {
	p.Email = core.CleanString(p.Email, true /* lower */)
}

// ChangePassword sets a new password under the password policy.
type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// DateRange is a from/to filter where to may not precede from.
type DateRange struct {
	From core.Date `json:"from" validate:"required"`
	To   core.Date `json:"to" validate:"required"`
}

func registerFormValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		cp := sl.Current().Interface().(ChangePassword)
		user.ValidatePassword(cp.Password, "", "", "", sl)
	}, ChangePassword{})

	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		dr := sl.Current().Interface().(DateRange)
		if !dr.From.IsZero() && !dr.To.IsZero() && dr.To.Before(dr.From) {
			sl.ReportError(dr.To, "to", "To", core.DateRangeTag, "")
		}
	}, DateRange{})
}
