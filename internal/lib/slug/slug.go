// Package slug генерирует непредсказуемые токены для публичных ссылок.
package slug

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length длина публичного токена.
const Length = 12

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// New возвращает токен длины Length из алфавитно-цифрового алфавита.
// Источник — crypto/rand: публичное чтение не аутентифицировано, угадываемость недопустима.
func New() (string, error) {
	const op = "slug.New"

	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid проверяет, что строка похожа на выданный токен, до похода в базу.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
