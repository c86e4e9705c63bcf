package aptos

import (
	"crypto/ed25519"
	"strings"
	"testing"
)

func TestNewAccount(t *testing.T) {
	t.Run("raw_and_record_agree", func(t *testing.T) {
		a, err := NewAccount(RawKey(testKey))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		b, err := NewAccount(KeyRecord{Private: strings.TrimPrefix(testKey, "0x")})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if a.Address() != b.Address() {
			t.Fatalf("address mismatch: %s vs %s", a.Address(), b.Address())
		}
		if len(a.Address()) != 2+addressHexLen {
			t.Fatalf("unexpected address length: %s", a.Address())
		}
	})

	t.Run("aip80_prefix", func(t *testing.T) {
		a, err := NewAccount(RawKey("ed25519-priv-" + testKey))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		b, _ := NewAccount(RawKey(testKey))
		if a.Address() != b.Address() {
			t.Fatalf("address mismatch: %s vs %s", a.Address(), b.Address())
		}
	})

	t.Run("pinned_address", func(t *testing.T) {
		a, err := NewAccount(KeyRecord{Private: testKey, Address: "0xCAFE"})
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if got, want := a.Address(), "0x"+strings.Repeat("0", 60)+"cafe"; got != want {
			t.Fatalf("got %s want %s", got, want)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, cred := range []Credential{nil, RawKey(""), RawKey("0x1234"), RawKey("zz"), KeyRecord{}} {
			if _, err := NewAccount(cred); err == nil {
				t.Fatalf("expected err for %#v", cred)
			}
		}
	})
}

func TestAccountSign(t *testing.T) {
	a, err := NewAccount(RawKey(testKey))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	msg := []byte("hello")
	sig, err := a.Sign(msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !ed25519.Verify(a.PublicKey(), msg, sig) {
		t.Fatalf("signature does not verify")
	}
	if AuthKey(a.PublicKey()) != a.Address() {
		t.Fatalf("address is not the auth key of the public key")
	}
	if _, err := a.Sign(nil); err == nil {
		t.Fatalf("expected err for empty message")
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"0x1":   "0x" + strings.Repeat("0", 63) + "1",
		"0XAbC": "0x" + strings.Repeat("0", 61) + "abc",
		" 0x" + strings.Repeat("f", 64) + " ": "0x" + strings.Repeat("f", 64),
	}
	for in, want := range cases {
		got, err := NormalizeAddress(in)
		if err != nil {
			t.Fatalf("%q: unexpected err: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %s want %s", in, got, want)
		}
	}

	for _, bad := range []string{"", "0x", "0xnotanaddress", "0x" + strings.Repeat("1", 65)} {
		if _, err := NormalizeAddress(bad); err == nil {
			t.Fatalf("%q: expected err", bad)
		}
	}

	if !SameAddress("0x1", "0x0001") || SameAddress("0x1", "0x2") {
		t.Fatalf("SameAddress mismatch")
	}
}

func TestCoinTypes(t *testing.T) {
	apt := "0x1::aptos_coin::AptosCoin"
	if got := CoinStoreType(apt); got != "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>" {
		t.Fatalf("store type: %s", got)
	}
	inner, ok := CoinTypeFromStore(CoinStoreType(apt))
	if !ok || inner != apt {
		t.Fatalf("round trip: %q %v", inner, ok)
	}
	if _, ok := CoinTypeFromStore("0x1::account::Account"); ok {
		t.Fatalf("expected non-coin resource to be rejected")
	}

	creator, err := CreatorAddress("0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa::asset::USDC")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if creator != "0xf22bede237a07e121b56d91a491eb7bcdfd1f5907926a9e58338f964a01b17fa" {
		t.Fatalf("creator: %s", creator)
	}
	if _, err := CreatorAddress("AptosCoin"); err == nil {
		t.Fatalf("expected err")
	}
}

func TestWatchOnly(t *testing.T) {
	w, err := NewWatchOnly("0xBEEF")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if w.Address() != "0x"+strings.Repeat("0", 60)+"beef" {
		t.Fatalf("address: %s", w.Address())
	}
	if _, err := w.Sign([]byte("x")); err == nil {
		t.Fatalf("expected watch-only sign to fail")
	}
	if _, err := NewWatchOnly("nope"); err == nil {
		t.Fatalf("expected err")
	}
}
