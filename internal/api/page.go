package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"stockcrew/pkg/errors"
)

//go:embed assets/index.html
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

// About is the sidebar text of the web app.
const About = "This app uses AI agents to analyze stocks based on the company name you provide. " +
	"It generates a detailed report including financial analysis, charts, and investment recommendations."

type pageData struct {
	Title         string
	About         string
	ReportMissing string
	Version       string
}

func (s *Server) index(c echo.Context) error {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, pageData{
		Title:         "Stock Analysis App",
		About:         About,
		ReportMissing: ReportMissing,
		Version:       s.cfg.Version,
	})
	if err != nil {
		return errors.Wrap(err, "render index")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
