package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
)

// SealedFormat метка формата зашифрованного архива
const SealedFormat = "petalsync-sealed/v1"

// ErrAuthFailed означает неверный пароль или поврежденный архив
var ErrAuthFailed = errors.New("wrong passphrase or corrupted archive")

// sealedArchive JSON конверт: соль и nonce+ciphertext+tag
type sealedArchive struct {
	Format string `json:"format"`
	Salt   []byte `json:"salt"`
	Data   []byte `json:"data"`
}

// Seal шифрует plaintext ключом, полученным из passphrase (AES-256-GCM).
// Результат - JSON документ, который распознает IsSealed.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// формат data: nonce + ciphertext + auth_tag
	data := gcm.Seal(nonce, nonce, plaintext, []byte(SealedFormat))

	return json.Marshal(sealedArchive{Format: SealedFormat, Salt: salt, Data: data})
}

// Open расшифровывает архив, созданный Seal
func Open(archive []byte, passphrase string) ([]byte, error) {
	var sealed sealedArchive
	if err := json.Unmarshal(archive, &sealed); err != nil || sealed.Format != SealedFormat {
		return nil, errors.New("not a sealed archive")
	}

	key, err := DeriveKey(passphrase, sealed.Salt)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed.Data) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrAuthFailed
	}

	nonce, ciphertext := sealed.Data[:gcm.NonceSize()], sealed.Data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(SealedFormat))
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data looks like an archive produced by Seal.
func IsSealed(data []byte) bool {
	var probe struct {
		Format string `json:"format"`
	}
	return json.Unmarshal(data, &probe) == nil && probe.Format == SealedFormat
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
