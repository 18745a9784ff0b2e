// Package crypto はInfotech API互換の暗号化・署名機能を提供する。
// AES-256-CBC（PKCS7パディング、固定IV）による対称暗号と、
// モバイルクライアントを模したリクエストヘッダーの構築を含む。
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrDecryptFailed は復号失敗を示す番兵エラー。
// 鍵不一致、不正なbase64、破損した暗号文のいずれも同一のエラーに正規化する。
// 呼び出し側は「値が利用できない」ものとして扱い、ログに記録して継続する。
var ErrDecryptFailed = errors.New("crypto: decrypt failed")

// Cipher はAES-256-CBCの暗号化・復号を行う。
// 鍵とIVは起動時に設定から1回読み込み、以後は状態を持たないため
// 複数goroutineから安全に利用できる。
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher は秘密鍵とIVからCipherを生成する。
// secretKeyは32バイト（AES-256）、initVectorKeyは16バイトでなければならない。
func NewCipher(secretKey, initVectorKey string) (*Cipher, error) {
	key := []byte(secretKey)
	if len(key) != 32 {
		return nil, fmt.Errorf("crypto: secret key must be 32 bytes, got %d", len(key))
	}
	iv := []byte(initVectorKey)
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("crypto: init vector must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	return &Cipher{block: block, iv: iv}, nil
}

// Encrypt は平文をAES-256-CBCで暗号化し、base64文字列で返す。
// 任意のUTF-8文字列（空文字列を含む）に対してDecryptと逆写像の関係が成り立つ。
func (c *Cipher) Encrypt(plaintext string) string {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))

	enc := cipher.NewCBCEncrypter(c.block, c.iv)
	enc.CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt はbase64文字列の暗号文を復号して平文を返す。
// 失敗時はErrDecryptFailedを返し、panicや詳細エラーを境界の外に出さない。
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrDecryptFailed
	}

	out := make([]byte, len(raw))
	dec := cipher.NewCBCDecrypter(c.block, c.iv)
	dec.CryptBlocks(out, raw)

	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrDecryptFailed
	}

	return string(unpadded), nil
}

// pkcs7Pad はPKCS7パディングを付加する。
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// pkcs7Unpad はPKCS7パディングを除去する。不正なパディングはエラーを返す。
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("invalid padding length")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid padding byte")
		}
	}
	return data[:len(data)-padLen], nil
}
