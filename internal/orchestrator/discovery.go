package orchestrator

import "strings"

// discoveryKeywords 任一关键字作为子串出现即视为代理发现请求
// discoveryKeywords route a message to agent discovery when any appears as a substring
var discoveryKeywords = []string{
	"list agents",
	"show agents",
	"available agents",
	"what can you do",
	"help",
}

// IsDiscovery 判断用户输入是否为代理发现请求（去空白、小写后做子串匹配）
// IsDiscovery reports whether text asks for the agent directory.
// Matching is a substring test on the trimmed, lowercased text, so "helpful" matches too.
func IsDiscovery(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, kw := range discoveryKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
