package secret_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/datasmith-io/datasmith/pkg/secret"
	"github.com/datasmith-io/datasmith/pkg/utils/try"
)

func TestBox(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))

	t.Run("it opens what it sealed", func(t *testing.T) {
		box := try.To(secret.NewBox(key)).OrFatal(t)

		plaintext := []byte(`{"apiKey":"tw-xxxx"}`)
		sealed := try.To(box.Seal(plaintext)).OrFatal(t)
		if bytes.Contains(sealed, plaintext) {
			t.Fatal("sealed credential leaks the plaintext")
		}

		opened := try.To(box.Open(sealed)).OrFatal(t)
		if !bytes.Equal(opened, plaintext) {
			t.Errorf("unmatch: opened %s, sealed %s", opened, plaintext)
		}
	})

	t.Run("sealing twice yields different ciphertexts", func(t *testing.T) {
		box := try.To(secret.NewBox(key)).OrFatal(t)

		a := try.To(box.Seal([]byte("credential"))).OrFatal(t)
		b := try.To(box.Seal([]byte("credential"))).OrFatal(t)
		if bytes.Equal(a, b) {
			t.Error("nonce is not fresh per seal")
		}
	})

	t.Run("it rejects tampered ciphertext", func(t *testing.T) {
		box := try.To(secret.NewBox(key)).OrFatal(t)

		sealed := try.To(box.Seal([]byte("credential"))).OrFatal(t)
		sealed[len(sealed)-1] ^= 0xff
		if _, err := box.Open(sealed); err == nil {
			t.Error("tampered ciphertext opened without error")
		}
	})

	t.Run("it rejects short ciphertext", func(t *testing.T) {
		box := try.To(secret.NewBox(key)).OrFatal(t)
		if _, err := box.Open([]byte{1, 2, 3}); err == nil {
			t.Error("short ciphertext opened without error")
		}
	})

	for name, encodedKey := range map[string]string{
		"not base64":     "***",
		"too short":      base64.StdEncoding.EncodeToString([]byte("short")),
		"192-bit, short": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 24)),
	} {
		t.Run("it rejects a bad key: "+name, func(t *testing.T) {
			if _, err := secret.NewBox(encodedKey); err == nil {
				t.Error("bad key accepted")
			}
		})
	}
}
