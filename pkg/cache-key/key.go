package cachekey

import (
	"net/http"
	"strings"
)

const separator = "-"

// reserved URL characters that are dropped from default keys
const strippedChars = "._~:/?#[]@!$&'()*+,;="

// KeyGenFunc computes the cache key for a request.
type KeyGenFunc func(r *http.Request) string

type CacheKeyer struct {
	// Name of the application the responses belong to.
	// Every key generated by this keyer starts with it.
	AppName string
}

func NewCacheKeyer(appName string) CacheKeyer {
	return CacheKeyer{AppName: appName}
}

// Key returns the default key for a request, i.e. `<app>-<METHOD>-<uri>`,
// where the request URI (path and query) has the reserved URL characters removed.
func (c CacheKeyer) Key(r *http.Request) string {
	return defaultKey(c.AppName, r)
}

// MethodPrefix gets the key prefix for the app with the given method.
// E.g. prefix for all GET requests in the cache.
func (c CacheKeyer) MethodPrefix(method string) string {
	return c.AppName + separator + method + separator
}

// Custom prefixes the keys generated by fn with the app name.
func (c CacheKeyer) Custom(fn KeyGenFunc) KeyGenFunc {
	return func(r *http.Request) string {
		return c.AppName + separator + fn(r)
	}
}

// Static returns a generator using the same key for all requests.
func (c CacheKeyer) Static(key string) KeyGenFunc {
	return c.Custom(func(*http.Request) string { return key })
}

// PerUser returns a generator for per-user caching.
// The default key is used, with the name returned by user in place of the app name.
func PerUser(user KeyGenFunc) KeyGenFunc {
	return func(r *http.Request) string {
		return defaultKey(user(r), r)
	}
}

func defaultKey(name string, r *http.Request) string {
	return name + separator + r.Method + separator + stripReserved(r.URL.RequestURI())
}

func stripReserved(uri string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedChars, r) {
			return -1
		}
		return r
	}, uri)
}
