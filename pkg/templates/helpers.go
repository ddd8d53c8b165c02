package templates

import (
	"strconv"
	"strings"
	"text/template"
)

// TipLine closes every task prompt
const TipLine = "If you do your BEST WORK, I'll give you a $10,000 commission!"

// FuncMap returns helpers available to every prompt template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"tip":      func() string { return TipLine },
		"join":     strings.Join,
		"upper":    strings.ToUpper,
		"trim":     strings.TrimSpace,
		"bullets":  Bullets,
		"numbered": Numbered,
	}
}

// Bullets renders items as a markdown list
func Bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

// Numbered renders items as "1. item" lines
func Numbered(items []string) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, strconv.Itoa(i+1)+". "+item)
	}
	return strings.Join(lines, "\n")
}
