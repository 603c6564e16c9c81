package zipapp

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed templates/main.py.tmpl
var mainTemplate string

var bootstrap = template.Must(template.New("__main__.py").Parse(mainTemplate))

type extensionRef struct {
	Name   string
	Path   string
	SHA256 string
}

type bootstrapData struct {
	Version     string
	EntryModule string
	Library     string
	Digest      string
	Extensions  []extensionRef
}

func renderBootstrap(data bootstrapData) ([]byte, error) {
	var buf bytes.Buffer
	if err := bootstrap.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render bootstrap: %w", err)
	}
	return buf.Bytes(), nil
}
