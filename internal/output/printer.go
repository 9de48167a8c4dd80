package output

import (
	"io"
	"strings"

	"github.com/tarrence/clify/internal/clifyhttp"
)

// Printer writes formatted results to out and rendering warnings to err.
type Printer struct {
	out       io.Writer
	formatter Formatter
}

func NewPrinter(out io.Writer, err io.Writer, mode Mode) *Printer {
	return &Printer{
		out:       out,
		formatter: Formatter{Mode: mode, Warn: err},
	}
}

// PrintResponse formats res on out.
func (p *Printer) PrintResponse(res *clifyhttp.Response) error {
	return p.writeLine(p.out, p.formatter.Format(res.Status, res.Reason, res.Headers, res.Body))
}

// PrintError writes FormatError(msg) to out.
func (p *Printer) PrintError(msg string) error {
	return p.writeLine(p.out, FormatError(msg))
}

// PrintTransportError renders a failed request. A non-2xx response is
// printed in full after the error line.
func (p *Printer) PrintTransportError(terr *clifyhttp.TransportError) error {
	if err := p.PrintError(terr.Error()); err != nil {
		return err
	}
	if terr.Response == nil {
		return nil
	}
	return p.PrintResponse(terr.Response)
}

func (p *Printer) writeLine(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}
