// Command cmm runs the C-- preprocessor over one source file.
//
// Usage:
//
//	cmm [-json] [-o out] [-I dir]... [-D NAME[=VALUE]]... [-env file] [-symtab-stats] <source-file>
//
// The preprocessed text goes to stdout (or -o); diagnostics go to stderr in
// the "file:line:col: severity: message" form. With -json a single object
// {file, output, diagnostics, macros} is written instead.
//
// -symtab-stats loads every distinct identifier of the output into one
// symbol table sized by CMM_SYMTAB_BUCKETS and prints how the names spread
// over the buckets to stderr.
//
// Exit status is 0 on success, 1 when an error diagnostic was reported and
// 2 for usage or I/O failures.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/1604042736/c/internal/config"
	"github.com/1604042736/c/internal/lexer"
	"github.com/1604042736/c/internal/logger"
	"github.com/1604042736/c/internal/metrics"
	"github.com/1604042736/c/internal/preprocessor"
	"github.com/1604042736/c/internal/symtab"
	"github.com/1604042736/c/internal/types"
)

const (
	exitOK = iota
	exitDiagnostics
	exitFailure
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type macroReport struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Body      string `json:"body"`
}

type report struct {
	File        string                    `json:"file"`
	Output      string                    `json:"output"`
	Diagnostics []preprocessor.Diagnostic `json:"diagnostics"`
	Macros      []macroReport             `json:"macros"`
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cmm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		asJSON   = fs.Bool("json", false, "write a JSON report instead of plain text")
		outPath  = fs.String("o", "", "write the output to `file` instead of stdout")
		envFile  = fs.String("env", ".env", "load settings from this .env `file` if it exists")
		stats    = fs.Bool("symtab-stats", false, "report symbol table bucket usage for the output's identifiers")
		includes stringList
		defines  stringList
	)
	fs.Var(&includes, "I", "add `dir` to the #include search path (repeatable)")
	fs.Var(&defines, "D", "predefine `NAME[=VALUE]` (repeatable)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: cmm [flags] <source-file>\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitFailure
	}
	filename := fs.Arg(0)

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "cmm: %v\n", err)
		return exitFailure
	}
	log := logger.SetupWriter(stderr, cfg.Env, cfg.LogLevel)
	m := metrics.New()

	opts := []preprocessor.Option{
		preprocessor.WithLogger(log),
		preprocessor.WithMetrics(m),
		preprocessor.WithIncludeDirs(cfg.IncludeDirs...),
		preprocessor.WithIncludeDirs(includes...),
	}
	for _, d := range cfg.Defines {
		opts = append(opts, preprocessor.WithDefine(d.Name, d.Value))
	}
	for _, d := range defines {
		pd, err := config.ParseDefine(d)
		if err != nil {
			fmt.Fprintf(stderr, "cmm: -D %s: %v\n", d, err)
			return exitFailure
		}
		opts = append(opts, preprocessor.WithDefine(pd.Name, pd.Value))
	}

	p, err := preprocessor.Open(filename, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "cmm: %v\n", err)
		return exitFailure
	}
	defer p.Close()

	output, err := p.Preprocess()
	if err != nil {
		fmt.Fprintf(stderr, "cmm: %v\n", err)
		return exitFailure
	}

	write := func(w io.Writer) error {
		if *asJSON {
			return writeJSON(w, filename, output, p)
		}
		_, err := io.WriteString(w, output)
		return err
	}
	if *outPath == "" {
		err = write(stdout)
	} else {
		err = writeFile(*outPath, write)
	}
	if err != nil {
		fmt.Fprintf(stderr, "cmm: write output: %v\n", err)
		return exitFailure
	}
	if !*asJSON {
		for _, d := range p.Diagnostics() {
			fmt.Fprintln(stderr, d.Error())
		}
	}

	if *stats {
		st := symtabStats(output, cfg, m, log)
		fmt.Fprintf(stderr, "symtab: %d names in %d of %d buckets, longest chain %d\n",
			st.Items, st.UsedBuckets, cfg.SymtabBuckets, st.LongestChain)
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("could not write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}

	log.Debug("done", "file", filename, "diagnostics", len(p.Diagnostics()))
	if p.HasErrors() {
		return exitDiagnostics
	}
	return exitOK
}

// writeFile creates path, fills it with write and closes it. A failed close
// is reported like a failed write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// symtabStats adds each distinct identifier of the output to a file-scope
// table. Names are unchecked at this stage, so they carry types.Invalid.
func symtabStats(output string, cfg *config.Config, m *metrics.Metrics, log *slog.Logger) symtab.Stats {
	table := symtab.New(
		symtab.WithBuckets(cfg.SymtabBuckets),
		symtab.WithMaxTypes(cfg.SymtabMaxTypes),
		symtab.WithMetrics(m),
		symtab.WithLogger(log),
	)
	s := lexer.NewScanner(lexer.NewFileContext(strings.NewReader(output), "", 1, 1))
	for {
		tok, err := s.Next()
		if err != nil || tok.Type == lexer.TokenEOF {
			break
		}
		if tok.Type != lexer.TokenIdent {
			continue
		}
		if _, ok := table.Find(tok.Lexeme); !ok {
			table.Insert(tok.Lexeme, types.Invalid)
		}
	}
	return table.Stats()
}

func writeJSON(w io.Writer, filename, output string, p *preprocessor.Preprocessor) error {
	r := report{
		File:        filename,
		Output:      output,
		Diagnostics: p.Diagnostics(),
		Macros:      []macroReport{},
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []preprocessor.Diagnostic{}
	}
	for _, name := range p.Macros().Names() {
		m, _ := p.Macros().Lookup(name)
		r.Macros = append(r.Macros, macroReport{Name: m.Name, Signature: m.Signature(), Body: m.Body})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
