package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const tokenSalt = "shule/core/user.ResetTokens"

var (
	NowFunc = time.Now // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID makes usr's ID safe to put in a reset link.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(id), nil
}

// ResetTokens issues and checks password reset tokens of the form "<issue hour, base 36>-<signature>".
// A token dies once ttl elapsed, or as soon as the user's password, last login, activity or school changes.
type ResetTokens struct {
	key []byte
	ttl time.Duration
}

func NewResetTokens(secretKey string, ttl time.Duration) ResetTokens {
	key := sha256.Sum256([]byte(tokenSalt + secretKey))
	return ResetTokens{key: key[:], ttl: ttl}
}

func (rt ResetTokens) Make(usr User) string {
	return rt.makeAt(usr, hoursSinceEpoch(NowFunc()))
}

func (rt ResetTokens) Verify(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 {
		return errInvalidToken
	}
	issued, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil || issued < 0 {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(rt.makeAt(usr, issued)), []byte(token)) {
		return errInvalidToken
	}
	if hoursSinceEpoch(NowFunc())-issued > int64(rt.ttl/time.Hour) {
		return errTokenExpired
	}
	return nil
}

func (rt ResetTokens) makeAt(usr User, hour int64) string {
	mac := hmac.New(sha256.New, rt.key)
	for _, s := range []string{usr.ID, usr.TenantID, string(usr.PasswordHash), strconv.FormatBool(usr.IsActive)} {
		mac.Write([]byte(s))
		mac.Write([]byte{0})
	}
	if !usr.LastLogin.IsZero() {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(usr.LastLogin.UnixNano()))
		mac.Write(ts[:])
	}
	mac.Write([]byte(strconv.FormatInt(hour, 10)))
	return strconv.FormatInt(hour, 36) + "-" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func hoursSinceEpoch(t time.Time) int64 {
	return t.Unix() / 3600
}
