// Package token mints and verifies the stateless confirmation tokens embedded
// in account-activation and email-change links. Tokens are never stored:
// validity is re-derived on every check from the identity's current state.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pricewatch-io/pricewatch/app/entity"
)

var ErrUnusableIdentity = errors.New("identity has no primary key")

// bucket granularity: one day
const bucketSeconds = 24 * 60 * 60

// Generator derives tokens from (user pk, state fingerprint, day bucket) under
// an HMAC-SHA256 keyed by the process secret. A token stays valid until the
// fingerprint changes or the bucket window elapses, whichever comes first.
type Generator struct {
	secret []byte
	window int
	now    func() time.Time
}

func NewGenerator(secret []byte, timeoutDays int) *Generator {
	if timeoutDays < 1 {
		timeoutDays = 1
	}
	return &Generator{
		secret: secret,
		window: timeoutDays,
		now:    time.Now,
	}
}

// Mint produces a token for the user as of the current day bucket. It fails
// only when the identity is unusable, which is a programming error.
func (g *Generator) Mint(user *entity.User) (string, error) {
	if user == nil || user.ID == 0 {
		return "", ErrUnusableIdentity
	}
	return g.mintAt(user, g.currentBucket()), nil
}

// Check reports whether token matches any candidate recomputed for the user's
// current fingerprint across the accepted bucket window. Malformed or garbage
// input simply fails the comparison; Check never errors.
func (g *Generator) Check(user *entity.User, tok string) bool {
	if user == nil || user.ID == 0 || tok == "" {
		return false
	}
	current := g.currentBucket()
	for offset := 0; offset <= g.window; offset++ {
		expected := g.mintAt(user, current-int64(offset))
		if hmac.Equal([]byte(expected), []byte(tok)) {
			return true
		}
	}
	return false
}

func (g *Generator) currentBucket() int64 {
	return g.now().Unix() / bucketSeconds
}

func (g *Generator) mintAt(user *entity.User, bucket int64) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%d:%s:%d", user.ID, fingerprint(user), bucket)
	return strconv.FormatInt(bucket, 36) + "-" + hex.EncodeToString(mac.Sum(nil))
}

// fingerprint folds the security-sensitive fields of the identity into the
// signature, so a password change, activation change, login, or committed
// email change revokes every outstanding link at once.
func fingerprint(user *entity.User) string {
	lastLogin := ""
	if user.LastLogin.Valid {
		lastLogin = strconv.FormatInt(user.LastLogin.Time.Unix(), 10)
	}
	return fmt.Sprintf("%s:%s:%t:%s", user.PasswordHash, lastLogin, user.IsActive, user.Email)
}
