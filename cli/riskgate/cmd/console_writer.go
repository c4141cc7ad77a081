package cmd

import (
	"fmt"
	"io"
	"os"
)

// consoleWriter receives everything the commands print for the user, tests
// replace it to capture the output.
var consoleWriter console = &writerConsole{out: os.Stdout}

type console interface {
	Println(a ...any)
	Print(a ...any)
}

type writerConsole struct {
	out io.Writer
}

func (c *writerConsole) Println(a ...any) {
	_, _ = fmt.Fprintln(c.out, a...)
}

func (c *writerConsole) Print(a ...any) {
	_, _ = fmt.Fprint(c.out, a...)
}
