package permission

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/ts4z/wtapicks/config"
	"github.com/ts4z/wtapicks/model"
)

const (
	AuthCookieName = "wtapicks-auth"

	// Session cookies last this long in the browser.  The key's honor
	// window is what actually bounds them.
	cookieMaxAge = 30 * 24 * time.Hour
)

type BakeryClock interface {
	Now() time.Time
}

type cookieBaker struct {
	v  model.CookieKeyValidity
	sc *securecookie.SecureCookie
}

func (cb *cookieBaker) honorable(now time.Time) bool {
	return now.After(cb.v.MintFrom) && now.Before(cb.v.HonorUntil)
}

func (cb *cookieBaker) mintable(now time.Time) bool {
	return now.After(cb.v.MintFrom) && now.Before(cb.v.MintUntil)
}

type SiteConfigFetcher interface {
	FetchSiteConfig(ctx context.Context) (*model.SiteConfig, error)
}

// Bakery mints and reads session cookies with the keys in the site config.
type Bakery struct {
	clock        BakeryClock
	cookieDomain string
	bakers       []cookieBaker
}

// New creates a new Bakery instance.
func New(clock BakeryClock, conf *model.SiteConfig) (*Bakery, error) {
	now := clock.Now()
	keys := []cookieBaker{}
	for i, inputKey := range conf.CookieKeys {
		if inputKey.Validity.HonorUntil.Before(now) {
			log.Printf("disregarding key conf.CookieKeys[%d] since it is expired", i)
			continue
		}
		hashKey, err := base64.StdEncoding.DecodeString(inputKey.HashKey64)
		if err != nil {
			log.Printf("disregarding key conf.CookieKeys[%d] due to bad HashKey64: %v", i, err)
			continue
		}
		blockKey, err := base64.StdEncoding.DecodeString(inputKey.BlockKey64)
		if err != nil {
			log.Printf("disregarding key conf.CookieKeys[%d] due to bad BlockKey64: %v", i, err)
			continue
		}
		sc := securecookie.New(hashKey, blockKey)
		sc.MaxAge(int(cookieMaxAge / time.Second))
		keys = append(keys, cookieBaker{sc: sc, v: inputKey.Validity})
	}

	if len(keys) == 0 {
		return nil, errors.New("no usable cookie keys; run wtapicksadmin key rotate")
	}
	log.Printf("bakery: %d valid keys", len(keys))

	return &Bakery{
		clock:        clock,
		cookieDomain: conf.CookieDomain,
		bakers:       keys,
	}, nil
}

func (b *Bakery) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    AuthCookieName,
		Value:   "",
		Path:    "/",
		Domain:  b.cookieDomain,
		Expires: time.Unix(1, 0),
		MaxAge:  -1,
	})
}

func (b *Bakery) ReadCookie(r *http.Request) (*model.AuthCookieData, error) {
	cookie, err := r.Cookie(AuthCookieName)
	if err != nil {
		return nil, fmt.Errorf("can't get cookie: %w", err)
	}

	errs := []error{}
	now := b.clock.Now()

	for _, baker := range b.bakers {
		if !baker.honorable(now) {
			continue
		}

		c := &model.AuthCookieData{}
		err := baker.sc.Decode(AuthCookieName, cookie.Value, c)
		if err == nil {
			return c, nil
		}

		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("no valid keys to validate cookie")
	}
	return nil, fmt.Errorf("can't validate cookie (%d decoders): %w", len(errs), errs[0])
}

func (b *Bakery) bestKeyForMinting(now time.Time) (*cookieBaker, error) {
	var best *cookieBaker
	for i := range b.bakers {
		key := &b.bakers[i]
		if !key.mintable(now) {
			continue
		}

		// Pick the key that is valid for the longest amount of time.
		if best == nil || best.v.HonorUntil.Before(key.v.HonorUntil) {
			best = key
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no valid key for minting")
	}

	return best, nil
}

func (b *Bakery) BakeCookie(w http.ResponseWriter, lc *model.AuthCookieData) error {
	bb, err := b.bestKeyForMinting(b.clock.Now())
	if err != nil {
		return fmt.Errorf("can't find key for minting: %w", err)
	}

	encrypted, err := bb.sc.Encode(AuthCookieName, lc)
	if err != nil {
		log.Printf("can't encrypt cookie: %v", err)
		return fmt.Errorf("can't encrypt cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    encrypted,
		Path:     "/",
		Domain:   b.cookieDomain,
		MaxAge:   int(cookieMaxAge / time.Second),
		Secure:   config.SecureCookies(),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	return nil
}

// BakeryFactory hands out a Bakery built from the current site config,
// rebuilding it when the config changes.  Put a cache in front of sites.
type BakeryFactory struct {
	clock BakeryClock
	sites SiteConfigFetcher

	mu     sync.Mutex
	bakery *Bakery
	from   *model.SiteConfig
}

func NewBakeryFactory(clock BakeryClock, sites SiteConfigFetcher) *BakeryFactory {
	return &BakeryFactory{clock: clock, sites: sites}
}

func (bf *BakeryFactory) Bakery(ctx context.Context) (*Bakery, error) {
	sc, err := bf.sites.FetchSiteConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't fetch site config: %w", err)
	}

	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.bakery != nil && bf.from == sc {
		return bf.bakery, nil
	}
	b, err := New(bf.clock, sc)
	if err != nil {
		return nil, err
	}
	bf.bakery = b
	bf.from = sc
	return b, nil
}
