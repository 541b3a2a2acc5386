// Package validation は入力値の検証を提供する。
package validation

import "regexp"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email は文字列がメールアドレスの形式かどうかを返す。
//
//	Email("test@test.com") // true
//	Email("invalido")      // false
func Email(s string) bool {
	return emailPattern.MatchString(s)
}
