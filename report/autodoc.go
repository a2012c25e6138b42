package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Tool describes a command line tool for its documentation page.
type Tool struct {
	Name       string
	Output     string
	Run        string
	OptionList string
}

func (t Tool) vars() map[string]string {
	return map[string]string{
		"tool.name":        t.Name,
		"tool.output":      t.Output,
		"tool.run":         t.Run,
		"tool.option_list": t.OptionList,
	}
}

// WriteAutodoc fills the {{ tool.* }} placeholders of tmpl. Unknown
// placeholders render empty.
func WriteAutodoc(w io.Writer, tmpl string, tool Tool) error {
	t, err := fasttemplate.NewTemplate(tmpl, "{{", "}}")
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	vars := tool.vars()
	_, err = t.ExecuteFunc(w, func(w io.Writer, tag string) (int, error) {
		tag = strings.TrimSpace(tag)
		v, ok := vars[tag]
		if !ok {
			slog.Warn("Unknown template placeholder", "PLACEHOLDER", tag, "TOOL", tool.Name)
			return 0, nil
		}
		return io.WriteString(w, v)
	})
	return err
}
