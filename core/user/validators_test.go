package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func TestPasswordPolicyTag(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		uname   string
		wantTag string
	}{
		{name: "empty", pwd: "", wantTag: pwdMinLenTag},
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "l o loll", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "12345678", wantTag: pwdNotAllNumTag},
		{name: "complexity", pwd: "lol12345", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Jdoe2020!", uname: "jdoe2020", wantTag: pwdAttrSimTag},
		{name: "too common", pwd: "P@$$w0rd", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "LolC@t123", uname: "hero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, PasswordPolicyTag(tt.pwd, "", tt.uname, ""))
		})
	}
}

func TestNewUserValidation(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		nu      NewUser
		wantErr map[string]string
	}{
		{
			name: "username or email required",
			nu:   NewUser{Name: "Hero", Password: "LolC@t123", PasswordConfirm: "LolC@t123"},
			wantErr: map[string]string{
				"username": usernameOrEmailText,
				"email":    usernameOrEmailText,
			},
		},
		{
			name:    "invalid email",
			nu:      NewUser{Name: "Hero", Email: "lol", Password: "LolC@t123", PasswordConfirm: "LolC@t123"},
			wantErr: map[string]string{"email": "email must be a valid email address"},
		},
		{
			name:    "password confirm mismatch",
			nu:      NewUser{Name: "Hero", Email: "hero@test.cd", Password: "LolC@t123", PasswordConfirm: "lol"},
			wantErr: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
		{
			name:    "unknown role",
			nu:      NewUser{Name: "Hero", Email: "hero@test.cd", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{"lol:"}},
			wantErr: map[string]string{"roles": allRolesText},
		},
		{
			name: "valid",
			nu:   NewUser{Name: "Hero", Email: "hero@test.cd", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{RoleTeacher}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.nu)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "error is not validator.ValidationErrors: %T", err)
			assert.Equal(t, tt.wantErr, core.TranslateErrors(vErrs, translator))
		})
	}
}
