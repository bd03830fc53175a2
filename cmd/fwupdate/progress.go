package main

import (
	"io"

	"github.com/cheggaaa/pb"
	"github.com/urfave/cli/v3"

	"github.com/moffa90/go-fwupdate/updater"
)

// progressBar renders updater progress on the command's error writer.
// A disabled progressBar ignores every call.
type progressBar struct {
	out      io.Writer
	disabled bool
	bar      *pb.ProgressBar
	phase    string
}

func newProgressBar(cmd *cli.Command) *progressBar {
	return &progressBar{
		out:      cmd.Root().ErrWriter,
		disabled: cmd.Bool("no-progress"),
	}
}

func (p *progressBar) start(phase string, total int) {
	if p.disabled {
		return
	}
	p.finish()

	p.bar = pb.New(total).SetUnits(pb.U_BYTES).Prefix(phase + " ")
	if p.out != nil {
		p.bar.Output = p.out
	}
	p.bar.Start()
	p.phase = phase
}

func (p *progressBar) set(done int) {
	if p.bar != nil {
		p.bar.Set(done)
	}
}

func (p *progressBar) finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
		p.phase = ""
	}
}

// update is an updater.ProgressCallback.
func (p *progressBar) update(pr updater.Progress) {
	if pr.Phase == updater.PhaseComplete {
		p.set(pr.BytesDone)
		p.finish()
		return
	}
	if pr.Phase != p.phase {
		p.start(pr.Phase, pr.TotalBytes)
	}
	p.set(pr.BytesDone)
}
