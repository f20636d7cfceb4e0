package commands

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(description string) *progressBar {
	bar := progressbar.NewOptions(
		1,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progressBar{bar: bar}
}

func (p *progressBar) setTotal(total int) { p.bar.ChangeMax(total) }

func (p *progressBar) describe(d string) { p.bar.Describe(d) }

func (p *progressBar) set(n int) { _ = p.bar.Set(n) }

func (p *progressBar) finish() { _ = p.bar.Finish() }
