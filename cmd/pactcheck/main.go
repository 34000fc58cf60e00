package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrRacoon/pact/internal/ast"
	"github.com/MrRacoon/pact/internal/parser"
	"github.com/MrRacoon/pact/internal/solver"
	"github.com/MrRacoon/pact/internal/verify"
)

const usage = `pactcheck - property and invariant verification for contract modules

Usage:
  pactcheck verify [options] <file.pact> [module]        Verify every property and
                                                         table invariant (all modules,
                                                         or just the named one)
  pactcheck check [options] <file.pact> <module> <fun> <expr>
                                                         Verify one ad-hoc check
                                                         expression against a function

Options:
  --solver <path>    SMT solver binary (default: z3, from PATH)
  --timeout <dur>    Per-query solver timeout, e.g. 30s (default: none)
  --verbose          Log solver traffic and verdicts

Examples:
  pactcheck verify accounts.pact
  pactcheck verify --timeout 10s accounts.pact accounts
  pactcheck check accounts.pact accounts transfer "(valid (>= result 0))"
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "verify":
		handleVerify(os.Args[2:])
	case "check":
		handleCheck(os.Args[2:])
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// parseOptions strips the shared options off the argument list, returning
// the solver configuration and the remaining positional arguments.
func parseOptions(args []string) (solver.Options, []string) {
	opts := solver.Options{}
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--solver":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --solver requires a path")
				os.Exit(1)
			}
			opts.Binary = args[i]
		case "--timeout":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --timeout requires a duration")
				os.Exit(1)
			}
			d, err := time.ParseDuration(args[i])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad timeout %q: %s\n", args[i], err)
				os.Exit(1)
			}
			opts.Timeout = d
		case "--verbose":
			log.SetLevel(logrus.TraceLevel)
		default:
			if strings.HasPrefix(args[i], "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", args[i])
				os.Exit(1)
			}
			rest = append(rest, args[i])
		}
	}
	opts.Logger = log
	return opts, rest
}

func loadModules(filePath string) map[string]*ast.Module {
	source, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}
	mods, err := parser.Parse(filePath, string(source))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	all := make(map[string]*ast.Module, len(mods))
	for _, m := range mods {
		all[m.Name] = m
	}
	return all
}

func handleVerify(args []string) {
	opts, rest := parseOptions(args)
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		os.Exit(1)
	}
	all := loadModules(rest[0])

	var targets []*ast.Module
	if len(rest) > 1 {
		m, ok := all[rest[1]]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no module %q in %s\n", rest[1], rest[0])
			os.Exit(1)
		}
		targets = append(targets, m)
	} else {
		for _, m := range all {
			targets = append(targets, m)
		}
	}

	v := verify.New(opts)
	failed := false
	for _, m := range targets {
		mc, vf := v.VerifyModule(context.Background(), all, m)
		if vf != nil {
			fmt.Fprintf(os.Stderr, "%s\n", vf.Error())
			failed = true
			continue
		}
		fmt.Print(verify.Render(mc))
		if !verify.Passed(mc) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func handleCheck(args []string) {
	opts, rest := parseOptions(args)
	if len(rest) < 4 {
		fmt.Fprintln(os.Stderr, "Error: check requires <file> <module> <function> <expr>")
		os.Exit(1)
	}
	all := loadModules(rest[0])
	m, ok := all[rest[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no module %q in %s\n", rest[1], rest[0])
		os.Exit(1)
	}

	expr, err := parser.ParseExpr("<check>", rest[3])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	v := verify.New(opts)
	res, vf := v.VerifyCheck(context.Background(), all, m, rest[2], expr)
	if vf != nil {
		fmt.Fprintf(os.Stderr, "%s\n", vf.Error())
		os.Exit(1)
	}
	fmt.Println(res.String())
	if !res.Status.Passed() {
		os.Exit(1)
	}
}
