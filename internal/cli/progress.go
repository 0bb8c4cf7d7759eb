package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"docrag/internal/port"
)

// progressSink renders 0..100 progress as a bar on a terminal and as
// coarse log lines otherwise.
type progressSink struct {
	bar    *progressbar.ProgressBar
	logger *slog.Logger
	label  string
	logged int
}

func newProgress(label string, logger *slog.Logger) *progressSink {
	p := &progressSink{logger: logger, label: label, logged: -10}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", label)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
	}
	return p
}

// Func returns the callback handed to the use cases.
func (p *progressSink) Func() port.ProgressFunc {
	return func(percent int) {
		if p.bar != nil {
			_ = p.bar.Set(percent)
			return
		}
		if percent-p.logged >= 10 || percent == 100 {
			p.logged = percent
			p.logger.Info(p.label, "progress", percent)
		}
	}
}

func (p *progressSink) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
