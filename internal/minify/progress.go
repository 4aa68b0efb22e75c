package minify

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v2"
)

type progress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer, total int) *progress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("messages"),
	)
	return &progress{w: w, bar: bar}
}

func (p *progress) increment() {
	_ = p.bar.Add(1)
}

func (p *progress) finish() {
	_ = p.bar.Finish()
	_, _ = fmt.Fprintln(p.w)
}
