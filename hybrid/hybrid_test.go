package hybrid

import (
	"bytes"
	"testing"

	"github.com/loyalty/ptcore/group"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	g := group.New()
	kp := GenerateKeyPair(g)

	payload := bytes.Repeat([]byte{0xAB}, 32)
	ct, err := Encrypt(g, kp.PK, payload)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(g, kp.SK, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %x want %x", got, payload)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	g := group.New()
	kp := GenerateKeyPair(g)
	other := GenerateKeyPair(g)

	ct, err := Encrypt(g, kp.PK, bytes.Repeat([]byte{0x01}, 68))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(g, other.SK, ct); err == nil {
		t.Fatalf("expected decryption under the wrong key to fail")
	}
}

func TestTamperedCiphertextRejected(t *testing.T) {
	g := group.New()
	kp := GenerateKeyPair(g)

	ct, err := Encrypt(g, kp.PK, bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct.Payload[0] ^= 0xFF

	if _, err := Decrypt(g, kp.SK, ct); err == nil {
		t.Fatalf("expected tampered ciphertext to be rejected")
	}
}
