// Package i18n 提供后台接口的多语言提示信息
package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// 支持的语言
const (
	LocalePtBR = "pt-BR"
	LocaleEnUS = "en-US"
	LocaleZhCN = "zh-CN"
)

// DefaultLocale 未识别语言时使用
const DefaultLocale = LocalePtBR

const localeQueryKey = "lang"
const localeHeader = "X-Locale"

var supportedTags = []language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
	language.SimplifiedChinese,
}

var matcher = language.NewMatcher(supportedTags)

// T 返回指定语言的文案，缺失时依次回退到默认语言和 key 本身
func T(locale, key string) string {
	if msg, ok := lookup(locale, key); ok {
		return msg
	}
	if msg, ok := lookup(DefaultLocale, key); ok {
		return msg
	}
	return key
}

// Sprintf 文案作为格式串格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// ResolveLocale 从请求解析语言：lang 参数 > X-Locale 头 > Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale := c.Query(localeQueryKey); strings.TrimSpace(locale) != "" {
		return NormalizeLocale(locale)
	}
	if locale := c.GetHeader(localeHeader); strings.TrimSpace(locale) != "" {
		return NormalizeLocale(locale)
	}
	if accept := c.GetHeader("Accept-Language"); strings.TrimSpace(accept) != "" {
		tags, _, err := language.ParseAcceptLanguage(accept)
		if err == nil && len(tags) > 0 {
			return matchLocale(tags...)
		}
	}
	return DefaultLocale
}

// NormalizeLocale 将任意语言标识归一化为支持的语言
func NormalizeLocale(raw string) string {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return DefaultLocale
	}
	return matchLocale(tag)
}

func matchLocale(tags ...language.Tag) string {
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	switch supportedTags[index] {
	case language.AmericanEnglish:
		return LocaleEnUS
	case language.SimplifiedChinese:
		return LocaleZhCN
	default:
		return LocalePtBR
	}
}

func lookup(locale, key string) (string, bool) {
	table, ok := messages[locale]
	if !ok {
		return "", false
	}
	msg, ok := table[key]
	return msg, ok
}
