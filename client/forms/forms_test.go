package forms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/user"
)

func TestValidate(t *testing.T) {
	v := New()
	d := func(m time.Month, day int) core.Date { return core.NewDate(2024, m, day) }

	tests := []struct {
		name       string
		form       interface{}
		wantFields []string
	}{
		{name: "login ok", form: &Login{Username: " JDoe ", Password: "x"}},
		{name: "login missing password", form: &Login{Username: "jdoe"}, wantFields: []string{"password"}},
		{name: "reset request bad email", form: &PasswordResetRequest{Email: "jdoe@"}, wantFields: []string{"email"}},
		{name: "weak password", form: &ChangePassword{CurrentPassword: "0ldP@ss!", Password: "abc", PasswordConfirm: "abc"}, wantFields: []string{"password"}},
		{name: "password mismatch", form: &ChangePassword{CurrentPassword: "0ldP@ss!", Password: "LolC@t123", PasswordConfirm: "LolC@t12"}, wantFields: []string{"password_confirm"}},
		{name: "password ok", form: &ChangePassword{CurrentPassword: "0ldP@ss!", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}},
		{name: "inverted range", form: &DateRange{From: d(3, 2), To: d(3, 1)}, wantFields: []string{"to"}},
		{name: "same day range", form: &DateRange{From: d(3, 1), To: d(3, 1)}},
		{
			name:       "new user",
			form:       &user.NewUser{Name: "Jane", Email: "not-an-email", Password: "LolC@t123", PasswordConfirm: "LolC@t123"},
			wantFields: []string{"email"},
		},
		{
			name:       "academic year ends before it starts",
			form:       &academic.NewAcademicYear{Name: "2024", StartDate: d(9, 1), EndDate: d(6, 30)},
			wantFields: []string{"end_date"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsInvalid(err))
			fErr := err.(*Error)
			for _, f := range tt.wantFields {
				assert.Contains(t, fErr.Fields, f)
			}
			assert.Len(t, fErr.Fields, len(tt.wantFields))
		})
	}
}

func TestValidateCleans(t *testing.T) {
	l := &Login{Username: "  JDoe "}
	_ = New().Validate(l)
	assert.Equal(t, "jdoe", l.Username)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Fields: map[string]string{"to": "to cannot be before the start date", "from": "this field is required"}}
	assert.Equal(t, "invalid form: from: this field is required; to: to cannot be before the start date", err.Error())
}
