package cli

import (
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = io.WriteString(tw, strings.Join(headers, "\t")+"\n")
	return tw
}

func row(tw *tabwriter.Writer, cols ...string) {
	_, _ = io.WriteString(tw, strings.Join(cols, "\t")+"\n")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
