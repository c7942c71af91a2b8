package password

import (
	"encoding/base64"
	"fmt"
	"log" // all kids love log
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/model"
)

// MinLength is enforced at registration and by the admin tool.
const MinLength = 8

type private struct{}

func Hash(pw string) string {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("can't hash password: %v", err)
	}
	return base64.RawStdEncoding.EncodeToString(bytes)
}

func CheckStrength(pw string) error {
	if len(pw) < MinLength {
		return he.InvalidInputf("password must be at least %d characters", MinLength)
	}
	return nil
}

// Checker validates a password against every unexpired hash a user has.
type Checker struct {
	private
	hashes   [][]byte
	identity *model.UserIdentity
}

func NewChecker(userRow *model.UserRow, now time.Time) (*Checker, error) {
	ch := &Checker{private: private{}, identity: &userRow.UserIdentity}
	for _, row := range userRow.PasswordHashes {
		if row.Expires != nil && row.Expires.Before(now) {
			continue
		}
		bytes, err := base64.RawStdEncoding.DecodeString(row.Hash)
		if err != nil {
			return nil, fmt.Errorf("can't decode hashed password: %w", err)
		}
		ch.hashes = append(ch.hashes, bytes)
	}
	return ch, nil
}

func (ch *Checker) Validate(pw string) (*model.UserIdentity, error) {
	for _, hash := range ch.hashes {
		if err := bcrypt.CompareHashAndPassword(hash, []byte(pw)); err == nil {
			return ch.identity, nil
		}
	}
	return nil, he.Unauthorizedf("invalid password")
}
