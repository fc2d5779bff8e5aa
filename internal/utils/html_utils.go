package utils

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// 先用 UGC 策略清理掉 script/style 等危险节点，再提取纯文本
var textPolicy = bluemonday.UGCPolicy()

// HTMLToText 把 HTML 片段转换为纯文本。
// 每个标签位置视为一个空格，连续空白折叠为一个空格。
func HTMLToText(htmlStr string) string {
	if strings.TrimSpace(htmlStr) == "" {
		return ""
	}

	cleaned := textPolicy.Sanitize(htmlStr)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return ""
	}

	var parts []string
	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			if goquery.NodeName(child) == "#text" {
				parts = append(parts, child.Text())
				return
			}
			walk(child)
		})
	}
	walk(doc.Find("body"))

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
