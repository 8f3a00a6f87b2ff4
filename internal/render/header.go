package render

import (
	"fmt"
	"io"
	"text/template"

	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
)

const headerTemplateText = `#include <stdbool.h>
#include <stdint.h>

typedef struct {{.StructName}} {
{{- range .Groups}}
{{- if .Flat}}
{{- with index .Fields 0}}
    {{.CType}} {{.Decl}}; // Index: 0x{{$.Index .Entry}}, Subindex: {{.Entry.Subindex}}, {{.Entry.BitLength}} bits
{{- end}}
{{- else}}
    struct { // Index: 0x{{.Index}}
{{- range .Fields}}
        {{.CType}} {{.Decl}}; // Subindex: {{.Entry.Subindex}}, {{.Entry.BitLength}} bits
{{- end}}
    } {{.Name}}; // Index: 0x{{.Index}}
{{- end}}
{{- end}}
} {{.StructName}};
`

var headerTemplate = template.Must(template.New("header").Parse(headerTemplateText))

type headerData struct {
	StructName string
	Groups     []layoutGroup
}

func (headerData) Index(e objd.Entry) string {
	return e.HexIndex()
}

// WriteHeader renders the C struct declaration for entries.
func WriteHeader(w io.Writer, entries []objd.Entry, opts Options) error {
	opts = opts.withDefaults()
	groups, err := layout(entries)
	if err != nil {
		return err
	}
	data := headerData{StructName: opts.StructName, Groups: groups}
	if err := headerTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering header: %w", err)
	}
	return nil
}
