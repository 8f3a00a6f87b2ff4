package render

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// SyntaxError is a location where the C grammar could not parse the
// generated source.
type SyntaxError struct {
	Line    int
	Column  int
	Missing bool
	Text    string
}

func (e SyntaxError) String() string {
	if e.Missing {
		return fmt.Sprintf("%d:%d: missing %s", e.Line, e.Column, e.Text)
	}
	return fmt.Sprintf("%d:%d: unexpected %q", e.Line, e.Column, e.Text)
}

// CheckSyntax parses src as C and returns every error or missing node.
// An empty result means the source is syntactically well formed.
func CheckSyntax(ctx context.Context, src []byte) ([]SyntaxError, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing C: %w", err)
	}
	defer tree.Close()

	var errs []SyntaxError
	walkTree(tree.RootNode(), src, &errs)
	return errs, nil
}

// CheckFile runs CheckSyntax on a file and folds any findings into one error.
func CheckFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	errs, err := CheckSyntax(ctx, src)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, path+":"+e.String())
	}
	return fmt.Errorf("generated C does not parse:\n%s", strings.Join(lines, "\n"))
}

func walkTree(node *sitter.Node, source []byte, errs *[]SyntaxError) {
	if node == nil {
		return
	}

	if node.IsMissing() || node.Type() == "ERROR" {
		text := node.Content(source)
		if node.IsMissing() {
			text = node.Type()
		}
		*errs = append(*errs, SyntaxError{
			Line:    int(node.StartPoint().Row) + 1,
			Column:  int(node.StartPoint().Column) + 1,
			Missing: node.IsMissing(),
			Text:    text,
		})
		if !node.IsMissing() {
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(i), source, errs)
	}
}
