package report

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/gmaffy/biopet-utils/utils"
)

//go:embed templates/gentrap_report.tex
var defaultTemplate string

// LaTeX uses braces heavily, so actions are written as ((( ... ))).
const (
	leftDelim  = "((("
	rightDelim = ")))"
	noneText   = "None"
)

func toFloat(v any) (float64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case float64:
		return n, true, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false, fmt.Errorf("not a number: %q", n)
		}
		return f, true, nil
	}
	return 0, false, fmt.Errorf("not a number: %v", v)
}

func niceInt(v any) (string, error) {
	f, ok, err := toFloat(v)
	if err != nil || !ok {
		return noneText, err
	}
	return utils.NiceInt(int64(f)), nil
}

func niceFlt(v any) (string, error) {
	f, ok, err := toFloat(v)
	if err != nil || !ok {
		return noneText, err
	}
	return utils.NiceFloat(f), nil
}

var texEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`_`, `\_`, `&`, `\&`, `%`, `\%`, `#`, `\#`, `$`, `\$`,
	`{`, `\{`, `}`, `\}`,
)

// tex escapes characters LaTeX treats specially in running text.
func tex(v any) string { return texEscaper.Replace(fmt.Sprint(v)) }

// field reads key from a JSON object, giving nil for anything else.
func field(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	return nil
}

// keys lists the string keys of any map, in natural order.
func keys(m any) []string {
	v := reflect.ValueOf(m)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil
	}
	out := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		out = append(out, k.String())
	}
	return utils.NaturalSort(out)
}

func naturalSort(in []string) []string {
	return utils.NaturalSort(append([]string(nil), in...))
}

// LongTable is a LaTeX longtable with a repeated header and a continuation
// footer. Templates emit Head, the rows, then Foot.
type LongTable struct {
	Caption string
	Label   string
	Header  string
	Align   string
	Columns int
}

func newLongTable(caption, label, header, align string, columns int) LongTable {
	return LongTable{Caption: caption, Label: label, Header: header, Align: align, Columns: columns}
}

func (t LongTable) Head() string {
	return strings.Join([]string{
		`\begin{center}`,
		`\captionof{table}{` + t.Caption + `}`,
		`\label{` + t.Label + `}`,
		`\begin{longtable}{` + t.Align + `}`,
		`\hline`,
		t.Header,
		`\hline \hline`,
		`\endhead`,
		fmt.Sprintf(`\hline \multicolumn{%d}{c}{\textit{Continued on next page}}\\`, t.Columns),
		`\hline`,
		`\endfoot`,
		`\hline`,
		`\endlastfoot`,
	}, "\n")
}

func (t LongTable) Foot() string {
	return strings.Join([]string{`\end{longtable}`, `\end{center}`, `\addtocounter{table}{-1}`}, "\n")
}

var latexFuncs = template.FuncMap{
	"niceInt":     niceInt,
	"niceFlt":     niceFlt,
	"naturalSort": naturalSort,
	"longTable":   newLongTable,
	"tex":         tex,
	"field":       field,
	"keys":        keys,
}

// ParseTemplate parses a LaTeX template. An empty text selects the built-in
// Gentrap report.
func ParseTemplate(name, text string) (*template.Template, error) {
	if text == "" {
		name, text = "gentrap_report.tex", defaultTemplate
	}
	return template.New(name).Delims(leftDelim, rightDelim).Funcs(latexFuncs).Parse(text)
}

// LoadTemplate reads a template file, or the built-in one when path is empty.
func LoadTemplate(path string) (*template.Template, error) {
	if path == "" {
		return ParseTemplate("", "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(path, string(data))
}

// WriteLaTeX renders the run with the template. The template sees the run
// as .Run.
func WriteLaTeX(w io.Writer, tmpl *template.Template, run *Run) error {
	return tmpl.Execute(w, map[string]any{"Run": run})
}
