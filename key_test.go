package stalier

import "testing"

func TestStaticKey(t *testing.T) {
	if key := StaticKey("cacheKey").Resolve(); key != "cacheKey" {
		t.Fatalf("Key is %s", key)
	}
}

func TestKeyFuncIsCalledOnResolve(t *testing.T) {
	calls := 0
	key := KeyFunc(func() string {
		calls++
		return "computed"
	})
	if calls != 0 {
		t.Fatal("Key function called before resolving")
	}
	if resolved := key.Resolve(); resolved != "computed" {
		t.Fatalf("Key is %s", resolved)
	}
	if calls != 1 {
		t.Fatalf("Key function called %d times", calls)
	}
}

func TestZeroKeyIsEmpty(t *testing.T) {
	var key Key
	if resolved := key.Resolve(); resolved != "" {
		t.Fatalf("Key is %s", resolved)
	}
}
