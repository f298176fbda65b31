// pkg/notifier/format.go
package notifier

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"StickerRadar/pkg/model"
)

// FormatPriceAlert 把提醒事件渲染成Markdown消息
// 买入提醒的市场列表按价格升序，卖出提醒按价格降序
func FormatPriceAlert(alert model.PriceAlert) string {
	var emoji, title, priceInfo string

	if alert.Direction == model.DirectionBuy {
		emoji = "📈🔔"
		title = "BUY OPPORTUNITY"
		priceInfo = fmt.Sprintf("Lowest: %s TON (≤ %s TON)",
			formatAmount(alert.TriggerPrice), formatAmount(alert.Threshold))
	} else {
		emoji = "📉🔔"
		title = "SELL OPPORTUNITY"
		priceInfo = fmt.Sprintf("Highest: %s TON (≥ %s TON)",
			formatAmount(alert.TriggerPrice), formatAmount(alert.Threshold))
	}

	var markets []string
	for _, m := range alert.Markets {
		name := escapeMarkdownLinkText(cleanMarketplaceName(m.Marketplace))
		if m.URL != "" {
			markets = append(markets, fmt.Sprintf("• [%s](%s): %s TON", name, m.URL, formatAmount(m.Price)))
		} else {
			markets = append(markets, fmt.Sprintf("• %s: %s TON", name, formatAmount(m.Price)))
		}
	}

	return fmt.Sprintf(
		"%s %s\n\n"+
			"🏷️ Collection: **%s**\n"+
			"📦 Good: **%s**\n"+
			"💰 %s\n\n"+
			"🏪 Available on:\n%s\n\n"+
			"⏰ %s",
		emoji, title,
		escapeMarkdown(alert.DisplayName),
		escapeMarkdown(alert.GoodName),
		priceInfo,
		strings.Join(markets, "\n"),
		alert.CreatedAt.Format("15:04:05"),
	)
}

// FormatPriceAlertPlain 投递Markdown失败时的纯文本降级格式
func FormatPriceAlertPlain(alert model.PriceAlert) string {
	var emoji, title, priceInfo string

	if alert.Direction == model.DirectionBuy {
		emoji = "📈🔔"
		title = "BUY OPPORTUNITY"
		priceInfo = fmt.Sprintf("Lowest: %s TON (≤ %s TON)",
			formatAmount(alert.TriggerPrice), formatAmount(alert.Threshold))
	} else {
		emoji = "📉🔔"
		title = "SELL OPPORTUNITY"
		priceInfo = fmt.Sprintf("Highest: %s TON (≥ %s TON)",
			formatAmount(alert.TriggerPrice), formatAmount(alert.Threshold))
	}

	var markets []string
	for _, m := range alert.Markets {
		markets = append(markets, fmt.Sprintf("• %s: %s TON", cleanMarketplaceName(m.Marketplace), formatAmount(m.Price)))
	}

	return fmt.Sprintf(
		"%s %s\n\nCollection: %s\nGood: %s\nPrice: %s\n\nAvailable on:\n%s\n\nTime: %s",
		emoji, title, alert.DisplayName, alert.GoodName, priceInfo,
		strings.Join(markets, "\n"), alert.CreatedAt.Format("15:04:05"),
	)
}

// formatAmount 金额显示：整数补一位小数（20 -> 20.0），其余原样输出
func formatAmount(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// escapeMarkdown 转义动态文本中的Markdown特殊字符，数字中间的小数点不转义
func escapeMarkdown(text string) string {
	return escapeWith(text, `*_[]()~`+"`"+`>#+-=|{}!`)
}

// escapeMarkdownLinkText 链接文本内的转义，下划线在 [text](url) 里是安全的
func escapeMarkdownLinkText(text string) string {
	return escapeWith(text, `*[]()~`+"`"+`>#+-=|{}!`)
}

func escapeWith(text, chars string) string {
	if text == "" {
		return ""
	}

	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		if strings.ContainsRune(chars, r) {
			b.WriteByte('\\')
			b.WriteRune(r)
			continue
		}
		if r == '.' {
			// 只有前后都不是数字的小数点才转义，保持价格可读
			prevDigit := i > 0 && runes[i-1] >= '0' && runes[i-1] <= '9'
			nextDigit := i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9'
			if !prevDigit && !nextDigit {
				b.WriteByte('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// cleanMarketplaceName 市场名称显示清洗：下划线换空格、词首大写，常见缩写保持全大写
func cleanMarketplaceName(name string) string {
	if name == "" {
		return ""
	}

	cleaned := strings.ReplaceAll(name, "_", " ")
	cleaned = titleWords(strings.ToLower(cleaned))

	for _, abbr := range []string{"NFT", "TON", "API", "ID", "URL"} {
		cleaned = strings.ReplaceAll(cleaned, titleWords(strings.ToLower(abbr)), abbr)
	}

	return cleaned
}

// titleWords 把每个空格分隔的词首字母大写
func titleWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for _, r := range s {
		if r == ' ' {
			atWordStart = true
			b.WriteRune(r)
			continue
		}
		if atWordStart {
			b.WriteRune(unicode.ToUpper(r))
			atWordStart = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
