package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	ciphertext, err := Encrypt([]byte("platform-access-token"), key)
	assert.NoError(t, err)
	assert.NotEqual(t, "platform-access-token", ciphertext)

	plaintext, err := Decrypt(ciphertext, key)
	assert.NoError(t, err)
	assert.Equal(t, "platform-access-token", plaintext)
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	first, err := Encrypt([]byte("same input"), key)
	assert.NoError(t, err)
	second, err := Encrypt([]byte("same input"), key)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptWrongKey(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	otherKey := []byte("fedcba9876543210fedcba9876543210")

	ciphertext, err := Encrypt([]byte("secret"), key)
	assert.NoError(t, err)

	_, err = Decrypt(ciphertext, otherKey)
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	_, err := Decrypt("not base64!!!", key)
	assert.Error(t, err)

	_, err = Decrypt("YWJj", key) // valid base64, shorter than a nonce
	assert.Error(t, err)
}

func TestEncryptBadKeyLength(t *testing.T) {
	_, err := Encrypt([]byte("secret"), []byte("short"))
	assert.Error(t, err)
}
