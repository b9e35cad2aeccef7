// Command antecfront is a thin demonstration driver around the library:
// it wires cobra subcommands, an antec.yaml config, the C8 query layer and
// a liner-backed REPL together, but it is not a reimplementation of the
// excluded driver/parser (spec.md §1 "Driver, CLI, file I/O... out of
// scope"). typecheck and repl both operate on small, self-contained demo
// programs built the same way the library's own tests build synthetic
// trees, since there is no real surface-syntax parser in this repo to read
// from.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/config"
	"github.com/antec-lang/antec/internal/errors"
	"github.com/antec-lang/antec/internal/query"
	"github.com/antec-lang/antec/internal/types"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "antecfront",
	Short: "Demonstration CLI around the antec type-checking front end",
}

var typecheckCmd = &cobra.Command{
	Use:   "typecheck [demo]",
	Short: "Type-check a built-in demo program and print its diagnostics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "literal"
		if len(args) == 1 {
			name = args[0]
		}
		demo, ok := findDemo(name)
		if !ok {
			return fmt.Errorf("unknown demo %q (try: %s)", name, demoNames())
		}

		cfg := loadConfigOrDefault(cfgPath)
		table := query.NewTable(cfg.DefaultInt)
		pr := table.Parse(query.SourceFileId(name), demo.defs)
		result := table.TypeCheck(pr, demo.defs[len(demo.defs)-1].Def)
		printDiagnostics(cmd.OutOrStdout(), result.Diagnostics)

		if result.OK {
			fmt.Fprintln(cmd.OutOrStdout(), green("ok"))
			if typ, ok := table.GetType(pr, demo.main); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s : %s\n", bold(demo.main), typ.String())
			}
			return nil
		}
		return fmt.Errorf("%d diagnostic(s)", len(result.Diagnostics))
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read literal expressions one at a time and print their inferred type",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfigOrDefault(cfgPath)
		runRepl(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	var flags *pflag.FlagSet = rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "antec.yaml", "path to antec.yaml")

	rootCmd.AddCommand(typecheckCmd)
	rootCmd.AddCommand(replCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
}

func loadConfigOrDefault(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		cfg = config.Default()
	}
	return cfg
}

func demoNames() string {
	names := make([]string, len(demoPrograms))
	for i, d := range demoPrograms {
		names[i] = d.name
	}
	return strings.Join(names, ", ")
}

func printDiagnostics(w io.Writer, reports []*errors.Report) {
	for _, r := range reports {
		label := red("error")
		if r.Kind == errors.KindMissingCases || r.Kind == errors.KindUnreachable {
			label = yellow("warning")
		}
		fmt.Fprintf(w, "%s[%s]: %s (%s)\n", label, r.Code, r.Message, r.Span.Start)
	}
}

// runRepl drives a liner-backed read loop over bare literals (int, float,
// string, bool): this is intentionally not the full surface grammar (there
// is no lexer/parser in this repo, spec.md §1), just enough to push a value
// through C2-C4 and show what it infers to.
func runRepl(out io.Writer, cfg *config.Config) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	table := query.NewTable(cfg.DefaultInt)
	var nextDef ast.DefId = 1

	fmt.Fprintln(out, bold("antecfront repl"))
	fmt.Fprintln(out, "enter a literal (42, 3.14, \"hi\", true); :quit to exit")

	for {
		input, err := line.Prompt("> ")
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
		if input == ":quit" || input == ":q" {
			fmt.Fprintln(out, green("goodbye"))
			return
		}

		lit, err := parseLiteral(input)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}

		id := nextDef
		nextDef++
		def := &ast.Definition{Name: "it", Def: id, Body: lit}
		pr := table.Parse(query.SourceFileId(fmt.Sprintf("repl:%d", id)), []*ast.Definition{def})
		result := table.TypeCheck(pr, id)
		if !result.OK {
			printDiagnostics(out, result.Diagnostics)
			continue
		}
		typ, _ := table.GetType(pr, "it")
		fmt.Fprintf(out, "%s : %s\n", green("it"), typeString(typ))
	}
}

func typeString(t types.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

// parseLiteral recognises four of ast.Lit's literal kinds (bool, string,
// int, float); char and unit literals and anything else are reported as
// unsupported rather than misparsed.
func parseLiteral(input string) (*ast.Lit, error) {
	switch {
	case input == "true" || input == "false":
		return &ast.Lit{Kind: ast.LitBool, Value: input == "true"}, nil
	case strings.HasPrefix(input, `"`) && strings.HasSuffix(input, `"`) && len(input) >= 2:
		return &ast.Lit{Kind: ast.LitString, Value: strings.Trim(input, `"`)}, nil
	}
	if i, err := strconv.ParseInt(input, 10, 64); err == nil {
		return &ast.Lit{Kind: ast.LitInt, Value: i}, nil
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil {
		return &ast.Lit{Kind: ast.LitFloat, Value: f}, nil
	}
	return nil, fmt.Errorf("not a literal: %q", input)
}
