package render

import (
	"fmt"
	"io"
	"text/template"

	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
)

const tableTemplateText = `
#ifdef {{.TestGuard}}
#define SDO_VAR_NAME {{.VarName}}
#define ECT_BOOLEAN 0x0
#define ECT_INTEGER8 0x1
#define ECT_INTEGER16 0x2
#define ECT_INTEGER32 0x3
#define ECT_UNSIGNED8 0x4
#define ECT_UNSIGNED16 0x5
#define ECT_UNSIGNED32 0x6
#define ECT_REAL32 0x7
#define ECT_VISIBLE_STRING 0x8
#define ATYPE_RO 0x01
#define ATYPE_WO 0x02
#define ATYPE_RW 0x03
#define ATYPE_UNKNOWN 0x00

typedef struct {
    int index;
    int subindex;
    int datatype;
    int bitlength;
    int access;
    const char * name;
    void * data;
} objd_t;

{{.StructName}} {{.VarName}};
#endif  // {{.TestGuard}}

static const objd_t {{.TableName}}[] = {
{{- range .Rows}}
{{- if .First}}
  // Index: 0x{{.Index}}
{{- end}}
  { 0x{{.Index}}, {{.Subindex}}, {{.DataType}}, {{.BitLength}}, {{.Access}}, "{{.Path}}", (void*)&SDO_VAR_NAME.{{.Path}} },
{{- end}}
};
`

var tableTemplate = template.Must(template.New("objd").Parse(tableTemplateText))

type tableRow struct {
	First     bool
	Index     string
	Subindex  uint8
	DataType  string
	BitLength int
	Access    string
	Path      string
}

type tableData struct {
	Options
	Rows []tableRow
}

// WriteTable renders the objd_t table for entries. It refers to the struct
// emitted by WriteHeader with the same options and is meant to follow it in
// the same file.
func WriteTable(w io.Writer, entries []objd.Entry, opts Options) error {
	opts = opts.withDefaults()
	groups, err := layout(entries)
	if err != nil {
		return err
	}

	data := tableData{Options: opts}
	for _, g := range groups {
		for i, f := range g.Fields {
			code, err := ECTType(f.Entry.Type)
			if err != nil {
				return fmt.Errorf("index 0x%s subindex %d: %w", g.Index, f.Entry.Subindex, err)
			}
			path := f.Name
			if !g.Flat {
				path = g.Name + "." + f.Name
			}
			data.Rows = append(data.Rows, tableRow{
				First:     i == 0,
				Index:     g.Index,
				Subindex:  f.Entry.Subindex,
				DataType:  code,
				BitLength: f.Entry.BitLength,
				Access:    ATypeName(f.Entry.Access),
				Path:      path,
			})
		}
	}

	if err := tableTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering objd table: %w", err)
	}
	return nil
}
