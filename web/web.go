package web

import (
	"embed"
	"html/template"
	"strconv"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"rate": func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	},
	"coord": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
}

// Templates 解析内置的控制台模板，入口模板为 console.html
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
