// Package secure encrypts customer contact fields at rest. The format is the OpenSSL
// passphrase envelope ("Salted__" + salt, EVP_BytesToKey with MD5, AES-256-CBC, PKCS#7,
// base64) that existing rows were written in.
package secure

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

const (
	saltHeader = "Salted__"
	saltLen    = 8
	keyLen     = 32
)

type Cipher struct {
	passphrase []byte
}

func New(passphrase string) *Cipher {
	return &Cipher{passphrase: []byte(passphrase)}
}

// Encrypt returns plaintext unchanged when it is empty or no key is configured.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || len(c.passphrase) == 0 {
		return plaintext, nil
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "secure: generate salt")
	}
	key, iv := deriveKey(c.passphrase, salt)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Wrap(err, "secure: init cipher")
	}
	data := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)

	envelope := make([]byte, 0, len(saltHeader)+saltLen+len(out))
	envelope = append(envelope, saltHeader...)
	envelope = append(envelope, salt...)
	envelope = append(envelope, out...)
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt never fails: input that is empty, unkeyed or not a valid envelope comes back as is,
// which keeps legacy plaintext rows readable.
func (c *Cipher) Decrypt(ciphertext string) string {
	if ciphertext == "" || len(c.passphrase) == 0 {
		return ciphertext
	}
	plain, err := c.open(ciphertext)
	if err != nil || len(plain) == 0 {
		return ciphertext
	}
	return string(plain)
}

func (c *Cipher) open(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, err
	}
	if len(raw) < len(saltHeader)+saltLen+aes.BlockSize || !bytes.HasPrefix(raw, []byte(saltHeader)) {
		return nil, errors.New("secure: not a salted envelope")
	}
	salt := raw[len(saltHeader) : len(saltHeader)+saltLen]
	body := raw[len(saltHeader)+saltLen:]
	if len(body)%aes.BlockSize != 0 {
		return nil, errors.New("secure: truncated ciphertext")
	}

	key, iv := deriveKey(c.passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return unpad(out, aes.BlockSize)
}

// deriveKey is OpenSSL's EVP_BytesToKey with MD5 and a single iteration.
func deriveKey(passphrase, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+aes.BlockSize {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+aes.BlockSize]
}

func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, errors.New("secure: bad block length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, errors.New("secure: bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("secure: bad padding")
		}
	}
	return data[:len(data)-n], nil
}
