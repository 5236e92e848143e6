// Command checktrace is an interactive developer harness for the type
// checker's public surface, not a product CLI: load a hand-built fixture,
// run the checker over it, and step through the accumulated diagnostics and
// constraint-solving trace one line at a time.
//
// Grounded on the teacher's cmd/typecheck/main.go (a hand-built-AST smoke
// demo) and internal/repl/repl.go (a peterh/liner prompt loop with
// fatih/color highlighting and a colon-command dispatch table); this harness
// adapts both directly rather than reimplementing a REPL from scratch.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

func main() {
	s := newSession()
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".checktrace_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(in string) (c []string) {
		if !strings.HasPrefix(in, ":") {
			return nil
		}
		commands := []string{":help", ":list", ":load", ":check", ":diags", ":trace", ":next", ":types", ":captures", ":quit"}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, in) {
				c = append(c, cmd)
			}
		}
		return
	})

	out := os.Stdout
	fmt.Fprintln(out, bold("nominal type checker trace harness"))
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))
	fmt.Fprintln(out)

	run(s, line, out)

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func run(s *session, line *liner.State, out io.Writer) {
	for {
		input, err := line.Prompt(s.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("goodbye"))
			return
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" || input == ":exit" {
			fmt.Fprintln(out, green("goodbye"))
			return
		}
		if !strings.HasPrefix(input, ":") {
			fmt.Fprintf(out, "%s: not a command; this harness only loads fixtures, it has no parser (try :help)\n", red("error"))
			continue
		}
		s.handle(input, out)
	}
}
