package stager

import (
	"bytes"
	"embed"
	"path/filepath"
	"text/template"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/pkg/xos"
)

// Generated files at the root of the staged directory.
const (
	EntryFile  = "index.js"
	RouterFile = "router.js"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var handlerTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type handlerData struct {
	ShimPackage  string
	RouterFile   string
	ManifestFile string
	PublicPrefix string
	NotFoundKey  string
	ErrorKey     string
}

func renderHandlers(outputDir string) error {
	data := handlerData{
		ShimPackage:  ShimPackage,
		RouterFile:   RouterFile,
		ManifestFile: manifest.FileName,
		PublicPrefix: PrefixPublic,
		NotFoundKey:  "/404",
		ErrorKey:     "/_error",
	}
	for name, tmpl := range map[string]string{
		EntryFile:  "index.js.tmpl",
		RouterFile: "router.js.tmpl",
	} {
		var buf bytes.Buffer
		if err := handlerTemplates.ExecuteTemplate(&buf, tmpl, data); err != nil {
			return errs.Internal("render "+name, err)
		}
		if err := xos.WriteFile(filepath.Join(outputDir, name), buf.Bytes(), 0644); err != nil {
			return errs.Internal("write "+name, err)
		}
	}
	return nil
}
