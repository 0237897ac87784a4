package user

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTokens(t *testing.T) {
	ttl := 3 * 24 * time.Hour
	tokens := NewResetTokens("secret", ttl)

	now := time.Now()
	usr := User{
		ID:        "2b1d6f0e-7c43-4a8e-9a55-7d1f2c3b4a5e",
		TenantID:  "7d7b7a52-5d0f-4a44-8f8c-51f1a9a3c0de",
		Username:  "t",
		IsActive:  true,
		LastLogin: now,
	}
	require.NoError(t, usr.SetPassword("pwd"))
	valid := tokens.Make(usr)

	NowFunc = func() time.Time { return time.Now().Add(-ttl - time.Hour) }
	expired := tokens.Make(usr)
	NowFunc = time.Now

	changedPwd := usr
	require.NoError(t, changedPwd.SetPassword("new-pwd"))
	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)
	deactivated := usr
	deactivated.IsActive = false
	moved := usr
	moved.TenantID = "lol"

	tests := []struct {
		name    string
		tokens  ResetTokens
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "no signature", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "!!-sig", wantErr: errInvalidToken},
		{name: "forged signature", usr: usr, token: strconv.FormatInt(hoursSinceEpoch(now), 36) + "-sig", wantErr: errInvalidToken},
		{name: "expired", usr: usr, token: expired, wantErr: errTokenExpired},
		{name: "other secret", tokens: NewResetTokens("lol", ttl), usr: usr, token: valid, wantErr: errInvalidToken},
		{name: "password changed", usr: changedPwd, token: valid, wantErr: errInvalidToken},
		{name: "logged in since", usr: loggedIn, token: valid, wantErr: errInvalidToken},
		{name: "deactivated", usr: deactivated, token: valid, wantErr: errInvalidToken},
		{name: "other school", usr: moved, token: valid, wantErr: errInvalidToken},
		{name: "valid", usr: usr, token: valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tokens
			if tt.tokens.key != nil {
				rt = tt.tokens
			}
			assert.Equal(t, tt.wantErr, rt.Verify(tt.usr, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "2b1d6f0e-7c43-4a8e-9a55-7d1f2c3b4a5e"}
	id, err := decodeUID(EncodeUID(usr))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("%%%")
	assert.Error(t, err)
}
