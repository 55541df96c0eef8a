package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andrewchambers/ppengine/cpp"
)

func reportDiagnostic(w io.Writer, d cpp.Diagnostic) {
	fmt.Fprintln(w, d)
	printCaret(w, d.Pos)
}

// reportError prints err, and when it carries a position, the offending
// source line.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, err)
	var errLoc cpp.ErrorLoc
	if !errors.As(err, &errLoc) {
		return
	}
	printCaret(w, errLoc.Pos)
}

func printCaret(w io.Writer, pos cpp.FilePos) {
	if pos.Line <= 0 {
		return
	}
	f, err := os.Open(pos.File)
	if err != nil {
		return
	}
	defer f.Close()
	b := bufio.NewReader(f)
	lineno := 1
	for {
		done := false
		line, err := b.ReadString('\n')
		if err != nil {
			done = true
		}
		if lineno == pos.Line {
			if line == "" || line[len(line)-1] != '\n' {
				line += "\n"
			}
			fmt.Fprintf(w, "%s", line)
			// Tabs are 4 columns wide.
			linelen := 0
			for _, v := range line {
				switch v {
				case '\t':
					linelen += 4
				case '\n':
					// nothing.
				default:
					linelen += 1
				}
			}
			for i := 0; i < linelen; i++ {
				if i+1 == pos.Col {
					fmt.Fprintf(w, "%c", '^')
				} else {
					fmt.Fprintf(w, "%c", ' ')
				}
			}
			fmt.Fprintln(w, "")
			return
		}
		lineno += 1
		if done {
			return
		}
	}
}
