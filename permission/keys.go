package permission

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ts4z/wtapicks/model"
)

const (
	// these sizes are recommended by the gorilla/securecookie package
	// https://pkg.go.dev/github.com/gorilla/securecookie#New
	hashKeySize  = 32
	blockKeySize = 16
)

func generateKey(sz int) ([]byte, error) {
	key := make([]byte, sz)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating random key: %w", err)
	}
	return key, nil
}

// KeyWindows says when a new key mints and how long it is honored after.
type KeyWindows struct {
	StartOffset  time.Duration
	MintDuration time.Duration
	HonorOffset  time.Duration
}

var DefaultKeyWindows = KeyWindows{
	MintDuration: 180 * 24 * time.Hour,
	HonorOffset:  180 * 24 * time.Hour,
}

func NewKeyPair(now time.Time, kw KeyWindows) (model.CookieKeyPair, error) {
	hashKey, err := generateKey(hashKeySize)
	if err != nil {
		return model.CookieKeyPair{}, fmt.Errorf("generating hash key: %w", err)
	}
	blockKey, err := generateKey(blockKeySize)
	if err != nil {
		return model.CookieKeyPair{}, fmt.Errorf("generating block key: %w", err)
	}

	mintFrom := now.Add(kw.StartOffset)
	mintUntil := mintFrom.Add(kw.MintDuration)
	return model.CookieKeyPair{
		Validity: model.CookieKeyValidity{
			MintFrom:   mintFrom,
			MintUntil:  mintUntil,
			HonorUntil: mintUntil.Add(kw.HonorOffset),
		},
		HashKey64:  base64.StdEncoding.EncodeToString(hashKey),
		BlockKey64: base64.StdEncoding.EncodeToString(blockKey),
	}, nil
}

// RotateKeys drops expired keys from sc and adds a fresh one, which it
// returns.
func RotateKeys(sc *model.SiteConfig, now time.Time, kw KeyWindows) (model.CookieKeyPair, error) {
	kp, err := NewKeyPair(now, kw)
	if err != nil {
		return kp, err
	}
	valid := []model.CookieKeyPair{}
	for _, key := range sc.CookieKeys {
		if now.Before(key.Validity.HonorUntil) {
			valid = append(valid, key)
		}
	}
	sc.CookieKeys = append(valid, kp)
	return kp, nil
}

func KeyStatus(now time.Time, v model.CookieKeyValidity) string {
	if now.Before(v.MintFrom) {
		return "not yet active"
	}
	if now.After(v.HonorUntil) {
		return "expired"
	}
	if now.After(v.MintUntil) {
		// it's an older code, but it checks out
		return "obsolete"
	}
	return "active"
}
