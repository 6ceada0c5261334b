package slug

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallback 是清洗后为空时使用的兜底名称。
const fallback = "file"

// 在常见文件系统上非法、或有注入风险的文件名字符。
const illegalChars = `<>:"/\|?*`

// Sanitize 把用户提供的原始文件名清洗成可以安全记录与回显的形式。
// 只保留最后一个路径分量，去掉控制字符与非法字符，折叠连续的点号。
// 清洗结果不用于落盘命名，落盘名称始终由 Slugify 生成。
func Sanitize(name string) string {
	// 同时处理两种路径分隔符，防止携带目录前缀
	name = name[strings.LastIndexByte(name, '/')+1:]
	name = name[strings.LastIndexByte(name, '\\')+1:]
	name = filepath.Base(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			continue
		}
		if strings.ContainsRune(illegalChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := collapseRuns(b.String(), '.')
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return fallback
	}
	return cleaned
}

// Slugify 把任意文本转成小写、ASCII、连字符分隔的安全字符串。
// 函数是全函数：任何输入都会得到非空结果，清洗后为空时回退到 "file"。
// 不同人类名称的偶发碰撞由上游的唯一名分配器处理，这里不做保证。
func Slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = stripDiacritics(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}

	out := collapseRuns(b.String(), '-')
	out = strings.Trim(out, "-")
	if out == "" {
		return fallback
	}
	return out
}

// stripDiacritics 通过 NFD 分解去掉组合用变音符号，再合成回 NFC。
func stripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		// 转换失败时退回原文，后续的逐字符过滤仍然保证结果安全
		return text
	}
	return out
}

// collapseRuns 把连续出现的指定字符折叠为一个。
func collapseRuns(s string, c byte) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev byte
	for i := 0; i < len(s); i++ {
		if s[i] == c && prev == c {
			continue
		}
		b.WriteByte(s[i])
		prev = s[i]
	}
	return b.String()
}
