package e2etest

import (
	"github.com/myrjola/tutorai/internal/errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// unsafeCookieJar stores Secure session and CSRF cookies even though the test server speaks plain HTTP.
type unsafeCookieJar struct {
	*cookiejar.Jar
}

func newUnsafeCookieJar() (*unsafeCookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &unsafeCookieJar{Jar: jar}, nil
}

func (u *unsafeCookieJar) SetCookies(target *url.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		c.Secure = false
	}
	u.Jar.SetCookies(target, cookies)
}
