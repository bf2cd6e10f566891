package views

import (
	"html/template"
	"strings"
)

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"add":   func(a, b int) int { return a + b },
}
