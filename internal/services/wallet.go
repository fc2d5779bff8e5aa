package services

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeWallet 完整的 20 字节地址转换为 EIP-55 校验和格式，其余原样保留
func NormalizeWallet(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}
