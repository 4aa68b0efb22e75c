package hub

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v2"
)

type progress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer, label string, size int64) *progress {
	bar := progressbar.NewOptions(int(size),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetBytes(int(size)),
	)
	return &progress{w: w, bar: bar}
}

func (p *progress) Write(b []byte) (int, error) {
	_ = p.bar.Add(len(b))
	return len(b), nil
}

func (p *progress) finish() {
	_ = p.bar.Finish()
	_, _ = fmt.Fprintln(p.w)
}
