package vault

import (
	"testing"
)

func TestSealOpen(t *testing.T) {
	key := DeriveKey("deployment-secret")
	plaintext := "user-1:8d2f0c1e"

	token, err := Seal(plaintext, key)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	if token == plaintext {
		t.Fatal("Token should not be equal to plaintext")
	}

	opened, err := Open(token, key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if opened != plaintext {
		t.Errorf("Expected %s, got %s", plaintext, opened)
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	key1 := DeriveKey("secret-one")
	key2 := DeriveKey("secret-two")

	token, err := Seal("magic", key1)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	_, err = Open(token, key2)
	if err == nil {
		t.Fatal("Open should have failed with wrong key")
	}
}

func TestInvalidKeySize(t *testing.T) {
	invalidKey := []byte("shortkey")

	_, err := Seal("test", invalidKey)
	if err == nil {
		t.Fatal("Seal should fail with invalid key size")
	}

	_, err = Open("0123456789abcdef", invalidKey)
	if err == nil {
		t.Fatal("Open should fail with invalid key size")
	}
}

func TestOpenMalformedToken(t *testing.T) {
	key := DeriveKey("deployment-secret")
	_, err := Open("not base64!!", key)
	if err == nil {
		t.Fatal("Open should fail on a malformed token")
	}
}

func TestOpenTooShort(t *testing.T) {
	key := DeriveKey("deployment-secret")
	// AES-GCM nonce is 12 bytes, so anything shorter is definitely too short.
	_, err := Open("abcdef", key)
	if err == nil {
		t.Fatal("Open should fail on a too-short token")
	}
}
