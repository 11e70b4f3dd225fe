package cachekey

import (
	"net/http"
	"strings"
	"testing"
)

func TestDefaultKey(t *testing.T) {
	keygen := NewCacheKeyer("my-app")
	r, _ := http.NewRequest("GET", "http://dev.localhost/api/users?page=2&sort=name", nil)
	if key := keygen.Key(r); key != "my-app-GET-apiuserspage2sortname" {
		t.Fatalf("Key is %s", key)
	}
}

func TestDefaultKeyStripsReserved(t *testing.T) {
	keygen := NewCacheKeyer("app")
	r, _ := http.NewRequest("POST", "http://dev.localhost/a.b_c~d:e/f@g!h$i'j(k)l*m+n,o;p", nil)
	key := keygen.Key(r)
	if !strings.HasPrefix(key, "app-POST-") {
		t.Fatalf("Key is %s", key)
	}
	for _, c := range strippedChars {
		if strings.ContainsRune(strings.TrimPrefix(key, "app-POST-"), c) {
			t.Fatalf("Key %s contains %q", key, c)
		}
	}
}

func TestMethodPrefix(t *testing.T) {
	keygen := NewCacheKeyer("app")
	r, _ := http.NewRequest("GET", "http://dev.localhost/page", nil)
	if !strings.HasPrefix(keygen.Key(r), keygen.MethodPrefix("GET")) {
		t.Fatalf("Key %s does not start with %s", keygen.Key(r), keygen.MethodPrefix("GET"))
	}
}

func TestCustomKey(t *testing.T) {
	keygen := NewCacheKeyer("app")
	gen := keygen.Custom(func(r *http.Request) string { return "custom-" + r.URL.Query().Get("id") })
	r, _ := http.NewRequest("GET", "http://dev.localhost/?id=7", nil)
	if key := gen(r); key != "app-custom-7" {
		t.Fatalf("Key is %s", key)
	}
	if key := keygen.Static("fixed")(r); key != "app-fixed" {
		t.Fatalf("Key is %s", key)
	}
}

func TestPerUserKey(t *testing.T) {
	gen := PerUser(func(r *http.Request) string { return r.Header.Get("X-User") })
	r, _ := http.NewRequest("GET", "http://dev.localhost/profile", nil)
	r.Header.Set("X-User", "alice")
	if key := gen(r); key != "alice-GET-profile" {
		t.Fatalf("Key is %s", key)
	}
}
