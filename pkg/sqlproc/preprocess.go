// Package sqlproc 提供searchd方言SQL文本的预处理：
// 注释剥离、空白归一、语句切分与首关键字识别
package sqlproc

import (
	"fmt"
	"strings"
)

// StatementKind 语句类别（对外导出）
type StatementKind string

const (
	KindSelect   StatementKind = "SELECT"
	KindInsert   StatementKind = "INSERT"
	KindReplace  StatementKind = "REPLACE"
	KindUpdate   StatementKind = "UPDATE"
	KindDelete   StatementKind = "DELETE"
	KindShow     StatementKind = "SHOW"
	KindDescribe StatementKind = "DESCRIBE"
	KindCall     StatementKind = "CALL"
	KindOther    StatementKind = "OTHER"
)

// StripComments 剥离行注释与块注释（对外导出）
// 行注释支持"-- "与"#"两种形态，块注释为/* */；
// 引号串内的注释记号原样保留
func StripComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	var quote byte // 0表示不在引号串内
	i := 0
	for i < len(sql) {
		c := sql[i]

		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(sql) {
				b.WriteByte(sql[i+1])
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
			i++
		case c == '#':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < len(sql) {
				i += 2
			} else {
				i = len(sql)
			}
			// 块注释整体视作一个空白，避免粘连两侧token
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// Normalize 归一空白（对外导出）
// 引号串外的连续空白折叠为单个空格，去掉首尾空白与末尾分号
func Normalize(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	var quote byte
	pendingSpace := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(sql) {
				b.WriteByte(sql[i+1])
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			pendingSpace = b.Len() > 0
		case '\'', '"', '`':
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			quote = c
			b.WriteByte(c)
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteByte(c)
		}
	}

	out := b.String()
	out = strings.TrimRight(out, "; ")
	return out
}

// Split 按分号切分多语句文本（对外导出）
// 引号串内的分号不参与切分，空片段丢弃
func Split(sql string) []string {
	var out []string
	var quote byte
	start := 0
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case ';':
			if stmt := strings.TrimSpace(sql[start:i]); stmt != "" {
				out = append(out, stmt)
			}
			start = i + 1
		}
	}
	if stmt := strings.TrimSpace(sql[start:]); stmt != "" {
		out = append(out, stmt)
	}
	return out
}

// FirstKeyword 提取首关键字并转大写（对外导出）
func FirstKeyword(sql string) string {
	s := strings.TrimSpace(sql)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			end++
			continue
		}
		break
	}
	return strings.ToUpper(s[:end])
}

// Classify 按首关键字归类语句（对外导出）
func Classify(sql string) StatementKind {
	switch FirstKeyword(sql) {
	case "SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "REPLACE":
		return KindReplace
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	case "SHOW":
		return KindShow
	case "DESCRIBE", "DESC", "EXPLAIN":
		return KindDescribe
	case "CALL":
		return KindCall
	default:
		return KindOther
	}
}

// Prepare 一站式预处理（对外导出）
// 剥离注释、归一空白后切分为语句列表；全注释文本报错
func Prepare(sql string) ([]string, error) {
	cleaned := Normalize(StripComments(sql))
	stmts := Split(cleaned)
	if len(stmts) == 0 {
		return nil, fmt.Errorf("SQL文本为空或仅含注释")
	}
	return stmts, nil
}
