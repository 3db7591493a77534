package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"slices"
	"syscall"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/mds/slice"
	"github.com/danderson/borsh"
	"github.com/danderson/borsh/internal/borshgen"
	"github.com/danderson/borsh/schema"
	"github.com/kr/pretty"
	"github.com/tidwall/jsonc"
)

var globalArgs struct {
	Hex bool `flag:"hex,Read and write borsh data as hex text instead of raw bytes"`
}

var showArgs struct {
	Match string `flag:"match,Only show declarations matching this regexp"`
}

var decodeArgs struct {
	Prefix bool `flag:"prefix,Allow trailing bytes after the decoded value"`
}

var encodeArgs struct {
	OutFile string `flag:"out,Write encoded bytes to this file instead of stdout"`
}

var generateArgs struct {
	PackageName string `flag:"package,default=types,Package name for the generated code"`
	OutFile     string `flag:"out,default=types.go,Output file for the generated code"`
}

func main() {
	root := &command.C{
		Name:     "borsh",
		Usage:    "command args...",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:  "schema",
				Usage: "schema args...",
				Commands: []*command.C{
					{
						Name:     "show",
						Usage:    "show schema-file...",
						Help:     "Print the declarations and definitions of schema containers.",
						SetFlags: command.Flags(flax.MustBind, &showArgs),
						Run:      runSchemaShow,
					},
					{
						Name:  "check",
						Usage: "check schema-file...",
						Help: `Check that schema containers are complete.

A schema is complete if every declaration reachable from its root is
either primitive or defined. For each valid schema, the root
declaration and the schema fingerprint are printed.`,
						Run: runSchemaCheck,
					},
					{
						Name:  "meta",
						Usage: "meta",
						Help: `Write the schema of schema containers.

The output is itself a schema container, which describes the format
of the files read by the other schema commands.`,
						SetFlags: command.Flags(flax.MustBind, &encodeArgs),
						Run:      command.Adapt(runSchemaMeta),
					},
				},
			},
			{
				Name:  "decode",
				Usage: "decode schema-file [data-file]",
				Help: `Decode borsh data using only a schema.

Data is read from data-file, or from stdin if no file or "-" is given.
The decoded value is printed in Go syntax.`,
				SetFlags: command.Flags(flax.MustBind, &decodeArgs),
				Run:      runDecode,
			},
			{
				Name:  "encode",
				Usage: "encode schema-file [json-file]",
				Help: `Encode a JSON value using only a schema.

The value is read from json-file, or from stdin if no file or "-" is
given. Comments and trailing commas are allowed.

Structs with named fields are JSON objects, and sequences, arrays,
tuples and maps are JSON arrays (map entries are two-element arrays).
Enums are either the variant name as a string, or an object with the
variant name as its only key.`,
				SetFlags: command.Flags(flax.MustBind, &encodeArgs),
				Run:      runEncode,
			},
			{
				Name:     "generate",
				Usage:    "generate schema-file",
				Help:     "Generate Go type declarations from a schema container",
				SetFlags: command.Flags(flax.MustBind, &generateArgs),
				Run:      command.Adapt(runGenerate),
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	env := root.NewEnv(nil).SetContext(ctx)
	command.RunOrFail(env, os.Args[1:])
}

func runSchemaShow(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("show requires at least one schema file.")
	}
	match, err := regexp.Compile(showArgs.Match)
	if err != nil {
		return fmt.Errorf("invalid --match: %w", err)
	}

	var out indenter
	for i, path := range env.Args {
		c, err := readContainer(path)
		if err != nil {
			return err
		}
		if i > 0 {
			out.indent(0)
			out.s("")
		}
		fp, err := borsh.Fingerprint(c)
		if err != nil {
			return fmt.Errorf("fingerprinting %s: %w", path, err)
		}
		out.indent(0)
		out.f("%s: %s", path, c.Declaration)
		out.indent(1)
		out.f("fingerprint %x", fp)
		decls := slices.Collect(slice.Select(c.Definitions.Declarations(), match.MatchString))
		for _, decl := range decls {
			out.f("%s = %v", decl, c.Definitions[decl])
		}
	}
	return nil
}

func runSchemaCheck(env *command.Env) error {
	if len(env.Args) == 0 {
		return env.Usagef("check requires at least one schema file.")
	}
	var errs []error
	for _, path := range env.Args {
		c, err := readContainer(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fp, err := borsh.Fingerprint(c)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Printf("%s: ok %s %x\n", path, c.Declaration, fp)
	}
	return errors.Join(errs...)
}

func runSchemaMeta(env *command.Env) error {
	c, err := borsh.SchemaFor[schema.Container]()
	if err != nil {
		return err
	}
	bs, err := borsh.Marshal(c)
	if err != nil {
		return err
	}
	return writeOutput(encodeArgs.OutFile, bs)
}

func runDecode(env *command.Env) error {
	if len(env.Args) < 1 || len(env.Args) > 2 {
		return env.Usagef("decode requires a schema file and an optional data file.")
	}
	c, err := readContainer(env.Args[0])
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", env.Args[0], err)
	}
	data, err := readInput(env.Args[1:], globalArgs.Hex)
	if err != nil {
		return err
	}

	v, n, err := c.Decode(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", c.Declaration, err)
	}
	if n != len(data) && !decodeArgs.Prefix {
		return fmt.Errorf("decoding %s: %w: %d trailing bytes", c.Declaration, borsh.ErrInvalidData, len(data)-n)
	}
	fmt.Printf("%# v\n", pretty.Formatter(v))
	if n != len(data) {
		fmt.Fprintf(os.Stderr, "%d trailing bytes not decoded\n", len(data)-n)
	}
	return nil
}

func runEncode(env *command.Env) error {
	if len(env.Args) < 1 || len(env.Args) > 2 {
		return env.Usagef("encode requires a schema file and an optional JSON file.")
	}
	c, err := readContainer(env.Args[0])
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", env.Args[0], err)
	}
	src, err := readInput(env.Args[1:], false)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(src)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("parsing JSON input: %w", err)
	}
	bs, err := c.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.Declaration, err)
	}
	return writeOutput(encodeArgs.OutFile, bs)
}

func runGenerate(env *command.Env, path string) error {
	c, err := readContainer(path)
	if err != nil {
		return err
	}
	code, err := borshgen.Types(c, generateArgs.PackageName)
	if err != nil {
		return fmt.Errorf("generating types for %s: %w", c.Declaration, err)
	}
	if err := os.WriteFile(generateArgs.OutFile, []byte(code), 0644); err != nil {
		return fmt.Errorf("writing generated code: %w", err)
	}
	fmt.Printf("Wrote generated types to %s\n", generateArgs.OutFile)
	return nil
}

func writeOutput(path string, bs []byte) error {
	if globalArgs.Hex {
		bs = []byte(hex.EncodeToString(bs) + "\n")
	}
	if path == "" {
		_, err := os.Stdout.Write(bs)
		return err
	}
	return os.WriteFile(path, bs, 0644)
}
