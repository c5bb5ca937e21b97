package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service")
	}

	sealed, err := svc.EncryptString("DE89370400440532013000")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("DE89370400440532013000")) {
		t.Fatal("plaintext leaked into ciphertext")
	}
	plain, err := svc.DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "DE89370400440532013000" {
		t.Fatalf("unexpected plaintext %q", plain)
	}
}

func TestUnconfiguredPassesThrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sealed, _ := svc.EncryptString("secret")
	if string(sealed) != "secret" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestDecryptRejectsTruncated(t *testing.T) {
	svc, _ := New("0123456789abcdef0123456789abcdef")
	if _, err := svc.DecryptString([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error")
	}
}

func TestMask(t *testing.T) {
	cases := map[string]struct {
		value   string
		visible int
		want    string
	}{
		"long":  {value: "1234567890", visible: 4, want: "******7890"},
		"short": {value: "123", visible: 4, want: "***"},
		"empty": {value: "", visible: 4, want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := Mask(tc.value, tc.visible); got != tc.want {
				t.Fatalf("Mask(%q) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
