// Command colloml is the DSL toolchain's driver: tokenize, parse, check,
// eval and build subcommands exercising internal/lexer through
// internal/builder in sequence, grounded on the teacher's codecrafters
// CLI (one os.Args-driven switch per command) with the root command's
// colorized pass/fail styling carried into the diagnostic printer.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/builder"
	"github.com/christophcharles/Collomatique-sub005/internal/eval"
	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/parser"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/testhost"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: colloml [tokenize | parse | check | eval | build] <file.colloml>... [module function [args...]]")
}

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]
	rest := os.Args[2:]

	var err error
	switch command {
	case "tokenize":
		err = runTokenize(rest)
	case "parse":
		err = runParse(rest)
	case "check":
		err = runCheck(rest)
	case "eval":
		err = runEval(rest)
	case "build":
		err = runBuild(rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
		os.Exit(65)
	}
}

// moduleName derives a module identifier from a source file's base name,
// stripping its extension (spec.md's modules are named, not pathed).
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runTokenize(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("tokenize takes exactly one file")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	toks, errs := lexer.New(moduleName(args[0]), src).Scan()
	for _, tok := range toks {
		fmt.Println(tok.String())
	}
	return firstDiagnosticErr(errs)
}

func runParse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("parse takes exactly one file")
	}
	file, _, err := parseFile(args[0])
	if err != nil {
		return err
	}
	for _, s := range file.Stmts {
		fmt.Println(s.String())
	}
	return nil
}

func runCheck(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("check takes at least one file")
	}
	_, prog, err := analyzeFiles(args, testhost.New())
	if err != nil {
		return err
	}
	for modName, cm := range prog.Modules {
		for name, sig := range cm.Sigs {
			vis := "priv"
			if sig.Public {
				vis = "pub"
			}
			fmt.Printf("%s %s::%s -> %s\n", vis, modName, name, sig.Ret.String())
		}
	}
	fmt.Println(color.GreenString("ok"))
	return nil
}

func runEval(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("eval takes <file>... <module> <function> [args...]")
	}
	files, rest := splitFilesAndTarget(args)
	if len(files) == 0 || len(rest) < 2 {
		return fmt.Errorf("eval takes <file>... <module> <function> [args...]")
	}
	module, fn, argStrs := rest[0], rest[1], rest[2:]

	env := testhost.New()
	_, prog, err := analyzeFiles(files, env)
	if err != nil {
		return err
	}

	fnArgs := make([]value.Value, len(argStrs))
	for i, s := range argStrs {
		fnArgs[i] = parseLiteralArg(s)
	}

	result, obligations, err := eval.New(env, prog).EvalFunction(module, fn, fnArgs)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	for _, ob := range obligations {
		fmt.Printf("  obligation: %s%v (reified=%t)\n", ob.VarName, ob.Args, ob.Reified)
	}
	return nil
}

func runBuild(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("build takes <file>... <module> <function>[,<function>...]")
	}
	files, rest := splitFilesAndTarget(args)
	if len(files) == 0 || len(rest) < 2 {
		return fmt.Errorf("build takes <file>... <module> <function>[,<function>...]")
	}
	module, names := rest[0], strings.Split(rest[1], ",")

	env := testhost.New()
	_, prog, err := analyzeFiles(files, env)
	if err != nil {
		return err
	}

	bindings := make([]builder.ConstraintBinding, len(names))
	for i, n := range names {
		bindings[i] = builder.ConstraintBinding{Module: module, Name: n}
	}

	prob, err := builder.New(env, prog).Build(bindings)
	if err != nil {
		return err
	}

	fmt.Printf("variables: %d\n", len(prob.Variables))
	for _, v := range prob.Variables {
		fmt.Printf("  %s  [%g, %g] integer=%t reified=%t\n", v.ID.String(), v.DomainMin, v.DomainMax, v.IsInteger, v.Reified)
	}
	fmt.Printf("constraints: %d\n", len(prob.Constraints))
	fmt.Printf("reifications: %d\n", len(prob.Reifications))
	fmt.Println(color.GreenString("build ok"))
	return nil
}

// splitFilesAndTarget splits args into the leading run of arguments that
// name existing paths on disk (the source files) and the module/function
// target tuple, which is everything from the first argument that does not
// name an existing path.
func splitFilesAndTarget(args []string) (files, rest []string) {
	i := 0
	for ; i < len(args); i++ {
		if _, err := os.Stat(args[i]); err != nil {
			break
		}
		files = append(files, args[i])
	}
	return files, args[i:]
}

func parseFile(path string) (*ast.File, string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	module := moduleName(path)
	toks, lexErrs := lexer.New(module, src).Scan()
	if err := firstDiagnosticErr(lexErrs); err != nil {
		return nil, module, err
	}
	file, parseErrs := parser.New(module, toks).Parse()
	if err := firstDiagnosticErr(parseErrs); err != nil {
		return nil, module, err
	}
	return file, module, nil
}

func analyzeFiles(paths []string, env *testhost.Env) (map[string]*ast.File, *sema.Program, error) {
	if errs := sema.CheckHostSchema(env); len(errs) > 0 {
		return nil, nil, firstDiagnosticErr(errs)
	}
	files := make(map[string]*ast.File, len(paths))
	for _, p := range paths {
		f, module, err := parseFile(p)
		if err != nil {
			return nil, nil, err
		}
		files[module] = f
	}
	a := sema.New(env)
	prog := a.Analyze(files)
	for _, w := range a.Warnings() {
		fmt.Fprintln(os.Stderr, color.YellowString("warning:")+" "+w.Err.Error())
	}
	if err := firstDiagnosticErr(a.Errors()); err != nil {
		return files, prog, err
	}
	return files, prog, nil
}

func firstDiagnosticErr(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs[1:] {
		fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+e.Error())
	}
	return errs[0]
}

// parseLiteralArg parses one command-line function argument as an Int,
// Bool, or String literal; colloml's CLI has no host to resolve object
// references, so $Ident/@[Type]-typed arguments cannot be supplied this
// way.
func parseLiteralArg(s string) value.Value {
	if s == "true" {
		return value.Bool(true)
	}
	if s == "false" {
		return value.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	return value.Str(strings.Trim(s, `"`))
}
