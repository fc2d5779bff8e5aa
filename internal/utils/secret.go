package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"
)

const (
	APIKeyPrefix    = "agentchain_"
	APIKeyHexLength = 48
	APIKeyLength    = len(APIKeyPrefix) + APIKeyHexLength

	ClaimCodePrefix = "agentchain-"
	ClaimCodeLength = 8

	// 去掉了容易混淆的 0/O/1/I/L
	claimCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	idBytes = 12
)

// randomHex 返回 n 个随机字节的十六进制编码
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand 失败说明系统熵源不可用，无法继续
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// GenerateID 生成 24 位十六进制文档 ID
func GenerateID() string {
	return randomHex(idBytes)
}

// GenerateAPIKey 生成 agentchain_ + 48 位小写十六进制
func GenerateAPIKey() string {
	return APIKeyPrefix + randomHex(APIKeyHexLength/2)
}

// GenerateClaimCode 生成人类可读的认领码，例如 agentchain-K7QX2MZP
func GenerateClaimCode() string {
	var sb strings.Builder
	sb.Grow(len(ClaimCodePrefix) + ClaimCodeLength)
	sb.WriteString(ClaimCodePrefix)

	max := big.NewInt(int64(len(claimCodeAlphabet)))
	for i := 0; i < ClaimCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		sb.WriteByte(claimCodeAlphabet[n.Int64()])
	}
	return sb.String()
}

// HashAPIKey 计算 API Key 的 sha256 十六进制摘要，空字符串同样可以哈希
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// VerifyAPIKey 比较明文 key 与存储的哈希
func VerifyAPIKey(apiKey, hash string) bool {
	computed := HashAPIKey(apiKey)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// IsValidAPIKeyFormat 检查 key 是否为 agentchain_ + 48 位小写十六进制。
// 先比较长度，病态长输入直接拒绝。
func IsValidAPIKeyFormat(apiKey string) bool {
	if len(apiKey) != APIKeyLength {
		return false
	}
	if !strings.HasPrefix(apiKey, APIKeyPrefix) {
		return false
	}
	for i := len(APIKeyPrefix); i < len(apiKey); i++ {
		if !isLowerHex(apiKey[i]) {
			return false
		}
	}
	return true
}

// IsValidClaimCodeFormat 检查认领码格式。
// 兼容早期 4 位后缀的认领码。
func IsValidClaimCodeFormat(code string) bool {
	if !strings.HasPrefix(code, ClaimCodePrefix) {
		return false
	}
	suffix := code[len(ClaimCodePrefix):]
	if len(suffix) != ClaimCodeLength && len(suffix) != 4 {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if strings.IndexByte(claimCodeAlphabet, suffix[i]) < 0 {
			return false
		}
	}
	return true
}

func isLowerHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
