package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/veracity/internal/model"
)

// outputFlags select how a command prints its result
type outputFlags struct {
	format   string
	out      string
	noFooter bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "md", "output format (md, json, html)")
	cmd.Flags().StringVarP(&o.out, "out", "o", "-", "output path, - for stdout")
	cmd.Flags().BoolVar(&o.noFooter, "no-footer", false, "disable footer in Markdown output")
}

func (o *outputFlags) validate() error {
	switch o.format {
	case "md", "json", "html":
		return nil
	}
	return fmt.Errorf("unknown format %q (supported: md, json, html)", o.format)
}

func (o *outputFlags) assessment(a *app, as *model.Assessment) error {
	r := a.rendererFor(o.noFooter)
	return r.WriteFile(o.out, func(w io.Writer) error {
		md := func(w io.Writer) error { return r.AssessmentMarkdown(w, as) }
		switch o.format {
		case "json":
			return r.JSON(w, as)
		case "html":
			return r.HTML(w, "Assessment: "+as.ClaimText, md)
		}
		return md(w)
	})
}

func (o *outputFlags) document(a *app, d *model.Document) error {
	r := a.rendererFor(o.noFooter)
	return r.WriteFile(o.out, func(w io.Writer) error {
		md := func(w io.Writer) error { return r.DocumentMarkdown(w, d) }
		switch o.format {
		case "json":
			return r.JSON(w, d)
		case "html":
			return r.HTML(w, d.Title, md)
		}
		return md(w)
	})
}
