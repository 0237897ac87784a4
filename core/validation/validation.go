// Package validation wires every domain validation & translation into one validator.
package validation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/permission"
	"github.com/trezcool/shule/core/schedule"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

// New returns a validator with the core & domain validations registered.
func New() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	Register(validate, translator)
	return validate, translator
}

// Register adds the domain validations to a validator already set up by core.InitValidators.
func Register(validate *validator.Validate, translator ut.Translator) {
	user.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
	permission.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
}
