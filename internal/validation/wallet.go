// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidWalletAddress проверяет, что строка является hex-адресом кошелька EVM-сети.
func IsValidWalletAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}

// NormalizeHandle убирает пробелы и ведущий символ @ из имени пользователя Telegram или Twitter.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
