// internal/app/system/paging/paging.go
package paging

import (
	"strconv"
	"strings"
)

// PageSize is the number of members returned per admin list page.
const PageSize = 20

// MaxPage caps the page index so a hostile value cannot force a huge skip.
const MaxPage = 100000

// ParsePage reads a 0-based page index. Empty, negative, or non-numeric
// values yield 0.
func ParsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	if n > MaxPage {
		return MaxPage
	}
	return n
}

// Skip is the number of documents before page.
func Skip(page, size int) int64 {
	if page < 0 || size <= 0 {
		return 0
	}
	return int64(page) * int64(size)
}

// TotalPages is ceil(total/size), and 0 for an empty result.
func TotalPages(total int64, size int) int64 {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}
