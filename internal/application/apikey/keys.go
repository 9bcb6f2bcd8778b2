// Package apikey 提供 API 密钥的生成、散列与管理能力
package apikey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	// KeyPrefix 明文密钥固定前缀
	KeyPrefix = "rub_"

	// displayPrefixLen 展示前缀长度（含 rub_ 的前 8 个字符）
	displayPrefixLen = 8
)

// Generate 生成一个新的明文密钥：rub_ + 32 位十六进制随机串
func Generate() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return KeyPrefix + raw
}

// Hash 计算明文密钥的 SHA-256 十六进制散列
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix 计算密钥的展示前缀，用于列表中识别密钥
func DisplayPrefix(plaintext string) string {
	if len(plaintext) <= displayPrefixLen {
		return plaintext + "..."
	}
	return plaintext[:displayPrefixLen] + "..."
}

// WellFormed 检查明文密钥格式是否符合生成规则
// 仅做快速拒绝，认证仍以散列查找为准
func WellFormed(plaintext string) bool {
	if !strings.HasPrefix(plaintext, KeyPrefix) {
		return false
	}
	rest := plaintext[len(KeyPrefix):]
	if len(rest) != 32 {
		return false
	}
	for _, c := range rest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
