package custody

import (
	"strings"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := "0x04a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f80"

	blob, err := Seal(key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	got, err := Open(blob)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got != key {
		t.Fatalf("expected %s, got %s", key, got)
	}
}

func TestBlobCarriesFirstHalf(t *testing.T) {
	// The split scheme stores the decryption half alongside the ciphertext.
	// This is the documented custody contract (and its known weakness).
	key := "0xdeadbeefcafebabedeadbeefcafebabe"

	blob, err := Seal(key)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	firstHalf := key[:len(key)/2]
	if !strings.HasSuffix(blob, separator+firstHalf) {
		t.Fatalf("expected blob to end with %q, got %q", separator+firstHalf, blob)
	}
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	blob, err := Seal("0x0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	tampered := "00" + blob[2:]
	if tampered == blob {
		tampered = "ff" + blob[2:]
	}
	if _, err := Open(tampered); err == nil {
		t.Fatal("expected tampered blob to fail")
	}
}

func TestOpenRejectsMalformedBlob(t *testing.T) {
	for _, blob := range []string{"", "nothinghere", ":", "abc:"} {
		if _, err := Open(blob); err == nil {
			t.Fatalf("expected error for blob %q", blob)
		}
	}
}

func TestSealRejectsShortKey(t *testing.T) {
	if _, err := Seal("ab"); err == nil {
		t.Fatal("expected error for short key")
	}
}
