package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/corelang/lang/scanner"
	"github.com/mna/corelang/lang/token"
	"github.com/mna/mainer"
)

// Tokenize runs the scanner phase on each file and prints the token
// stream, one token per line.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		for _, tok := range scanner.ScanAll(string(b)) {
			switch tok.Kind {
			case token.EOF:
				fmt.Fprintf(stdio.Stdout, "%s:%d: EOF\n", path, tok.Line)
			case token.ERROR:
				fmt.Fprintf(stdio.Stdout, "%s:%d: ERROR %s\n", path, tok.Line, tok.Lexeme)
			default:
				fmt.Fprintf(stdio.Stdout, "%s:%d: %s %q\n", path, tok.Line, tok.Kind, tok.Lexeme)
			}
		}
	}
	return nil
}
