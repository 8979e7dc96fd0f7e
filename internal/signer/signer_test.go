package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestCanonicalSortsKeys(t *testing.T) {
	got := Canonical(map[string]string{
		"timestamp":  "1700000000",
		"amount":     "150000",
		"billNumber": "PD29007350490",
	})
	want := "amount=150000&billNumber=PD29007350490&timestamp=1700000000"
	if got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

func TestCanonicalEmpty(t *testing.T) {
	if got := Canonical(nil); got != "" {
		t.Errorf("Canonical(nil) = %q, want empty", got)
	}
}

func TestSignMatchesReference(t *testing.T) {
	s := New("test-secret")
	params := map[string]string{"a": "1", "b": "2"}

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte("a=1&b=2"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := s.Sign(params); got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
}

func TestSignDeterministic(t *testing.T) {
	s := New("k")
	params := map[string]string{"x": "1", "y": "2", "z": "3"}
	first := s.Sign(params)
	for i := 0; i < 5; i++ {
		if got := s.Sign(params); got != first {
			t.Fatalf("signature not deterministic: %q vs %q", got, first)
		}
	}
}

func TestVerify(t *testing.T) {
	s := New("secret")
	params := map[string]string{"merchantId": "M1", "amount": "99000"}
	sig := s.Sign(params)

	if !s.Verify(params, sig) {
		t.Error("Verify() rejected a valid signature")
	}
	if s.Verify(params, sig[:len(sig)-2]+"00") {
		t.Error("Verify() accepted a tampered signature")
	}
	if s.Verify(map[string]string{"merchantId": "M1", "amount": "1"}, sig) {
		t.Error("Verify() accepted a signature over different params")
	}
	if s.Verify(params, "not-hex") {
		t.Error("Verify() accepted a non-hex signature")
	}
}

func TestDifferentSecretsDiffer(t *testing.T) {
	params := map[string]string{"a": "1"}
	if New("one").Sign(params) == New("two").Sign(params) {
		t.Error("signatures with different secrets should differ")
	}
}
