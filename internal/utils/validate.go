package utils

import (
	"regexp"
	"strings"
)

const ErrEmptyContent = "Please enter content."

var (
	agentNamePattern   = regexp.MustCompile(`^\w{3,30}$`)
	channelNamePattern = regexp.MustCompile(`^\w{3,21}$`)
)

// ValidateContent 校验文本非空且不全是空白，通过返回空字符串
func ValidateContent(text string) string {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	return ""
}

func IsValidAgentName(name string) bool {
	return agentNamePattern.MatchString(name)
}

func IsValidChannelName(name string) bool {
	return channelNamePattern.MatchString(name)
}
