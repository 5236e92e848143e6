package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/check"
	"github.com/nominalang/check/internal/config"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// session holds the interactive harness's working state: the loaded fixture,
// the options it will be checked under, and the most recent result to step
// through.
type session struct {
	opts        config.Options
	loadedName  string
	prog        *scope.ScopedProgram
	result      *check.Result
	traceCursor int
}

func newSession() *session {
	return &session{opts: config.Default()}
}

func (s *session) prompt() string {
	if s.loadedName == "" {
		return "checktrace> "
	}
	return fmt.Sprintf("checktrace[%s]> ", s.loadedName)
}

// handle dispatches one command-prefixed input line, mirroring the style of
// a colon-command REPL: first token selects the handler, the rest is its
// argument string.
func (s *session) handle(input string, out io.Writer) {
	fields := strings.Fields(input)
	cmd := fields[0]
	var arg string
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch cmd {
	case ":help", ":h":
		s.help(out)
	case ":list", ":ls":
		s.list(out)
	case ":load":
		s.load(arg, out)
	case ":check":
		s.check(out)
	case ":diags":
		s.diags(out)
	case ":trace":
		s.trace(arg, out)
	case ":next":
		s.next(out)
	case ":types":
		s.types(out)
	case ":captures":
		s.captures(out)
	default:
		fmt.Fprintf(out, "%s: unrecognized command %q (try :help)\n", red("error"), cmd)
	}
}

func (s *session) help(out io.Writer) {
	fmt.Fprintln(out, bold("Commands:"))
	fmt.Fprintln(out, "  :list                 list loadable fixtures")
	fmt.Fprintln(out, "  :load <name>          load a fixture by name")
	fmt.Fprintln(out, "  :check                run the checker over the loaded fixture")
	fmt.Fprintln(out, "  :diags                print the diagnostics from the last check")
	fmt.Fprintln(out, "  :trace <line>         set TracingInferenceIn to a source line and re-check")
	fmt.Fprintln(out, "  :next                 step to the next recorded trace line")
	fmt.Fprintln(out, "  :types                print every checked declaration's inferred type")
	fmt.Fprintln(out, "  :captures             print every declaration's implicit captures")
	fmt.Fprintln(out, "  :quit                 exit")
}

func (s *session) list(out io.Writer) {
	fmt.Fprint(out, describeFixtures())
}

func (s *session) load(name string, out io.Writer) {
	f, ok := fixtures[name]
	if !ok {
		fmt.Fprintf(out, "%s: no such fixture %q (try :list)\n", red("error"), name)
		return
	}
	s.loadedName = name
	s.prog = f.build()
	s.result = nil
	s.traceCursor = 0
	fmt.Fprintf(out, "%s loaded %s\n", green("ok"), name)
}

func (s *session) check(out io.Writer) {
	if s.prog == nil {
		fmt.Fprintf(out, "%s: no fixture loaded (try :load)\n", red("error"))
		return
	}
	s.result = check.New(s.opts).Check(s.prog)
	s.traceCursor = 0
	if s.result.Program.Success {
		fmt.Fprintf(out, "%s check succeeded, %d diagnostic(s)\n", green("ok"), len(s.result.Diagnostics))
	} else {
		fmt.Fprintf(out, "%s check failed, %d diagnostic(s)\n", red("failed"), len(s.result.Diagnostics))
	}
}

func (s *session) diags(out io.Writer) {
	if s.result == nil {
		fmt.Fprintf(out, "%s: nothing checked yet (try :check)\n", red("error"))
		return
	}
	if len(s.result.Diagnostics) == 0 {
		fmt.Fprintln(out, dim("(no diagnostics)"))
		return
	}
	for _, d := range s.result.Diagnostics {
		printDiagnostic(out, d)
	}
}

func printDiagnostic(out io.Writer, d diagnostics.Diagnostic) {
	sev := yellow(d.Severity.String())
	if d.Severity == diagnostics.SeverityError {
		sev = red(d.Severity.String())
	}
	fmt.Fprintf(out, "%s [%s] %s: %s\n", sev, cyan(string(d.Code)), d.Site, d.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(out, "    %s %s\n", dim("note:"), n)
	}
}

func (s *session) trace(arg string, out io.Writer) {
	if arg == "" {
		fmt.Fprintf(out, "%s: usage: :trace <line>\n", red("error"))
		return
	}
	var line int
	if _, err := fmt.Sscanf(arg, "%d", &line); err != nil {
		fmt.Fprintf(out, "%s: %q is not a line number\n", red("error"), arg)
		return
	}
	s.opts.TracingInferenceIn = line
	s.check(out)
	fmt.Fprintf(out, "%s armed tracing on line %d, %d entries recorded\n", green("ok"), line, len(s.result.Trace))
}

func (s *session) next(out io.Writer) {
	if s.result == nil || len(s.result.Trace) == 0 {
		fmt.Fprintln(out, dim("(no trace recorded; use :trace <line> first)"))
		return
	}
	if s.traceCursor >= len(s.result.Trace) {
		fmt.Fprintln(out, dim("(trace exhausted)"))
		return
	}
	fmt.Fprintf(out, "%s %s\n", cyan(fmt.Sprintf("[%d/%d]", s.traceCursor+1, len(s.result.Trace))), s.result.Trace[s.traceCursor])
	s.traceCursor++
}

func (s *session) types(out io.Writer) {
	if s.result == nil {
		fmt.Fprintf(out, "%s: nothing checked yet (try :check)\n", red("error"))
		return
	}
	names := make([]string, 0, len(s.result.Program.DeclTypes))
	byName := map[string]string{}
	for d, t := range s.result.Program.DeclTypes {
		n := declLabel(d)
		names = append(names, n)
		byName[n] = t.String()
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %-16s %s\n", n, byName[n])
	}
}

func (s *session) captures(out io.Writer) {
	if s.result == nil {
		fmt.Fprintf(out, "%s: nothing checked yet (try :check)\n", red("error"))
		return
	}
	if len(s.result.Program.ImplicitCaptures) == 0 {
		fmt.Fprintln(out, dim("(no implicit captures)"))
		return
	}
	for d, caps := range s.result.Program.ImplicitCaptures {
		fmt.Fprintf(out, "%s:\n", declLabel(d))
		for _, c := range caps {
			fmt.Fprintf(out, "  %s %s (%s)\n", c.Name, dim(c.Effect.String()), declLabel(c.Referent))
		}
	}
}

func declLabel(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.FunctionDecl:
		return v.Identifier
	case *ast.VarDecl:
		return v.Name
	case *ast.ProductDecl:
		return v.Name
	case *ast.TraitDecl:
		return v.Name
	default:
		return fmt.Sprintf("%T", d)
	}
}
