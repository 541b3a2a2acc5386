// Package format は表示用の文字列整形を提供する。
package format

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts はParseDateが受け付ける日付形式。先頭から順に試す。
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Date は日付を DD/MM/YYYY 形式に整形する。
//
//	Date(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)) // "10/01/2026"
func Date(t time.Time) string {
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), t.Year())
}

// ParseDate は YYYY-MM-DD または RFC 3339 形式の文字列を解析する。
// タイムゾーンを持たない形式はUTCとして扱う。
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// Today は現在日付を YYYY-MM-DD 形式で返す。
func Today(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}
