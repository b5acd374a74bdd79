package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `Usage: archive <command> [flags] <archive|->

Commands:
  list     list members (--output text|json|yaml|cbor, --digest)
  cat      write the named members' contents to stdout
  extract  extract members into a directory (-C dir)
  browse   browse members interactively
  version  print the native engine version
`

// options are the settings shared by every command after the profile and
// the command-line flags have been merged.
type options struct {
	profile *config.Profile
	digest  bool
	dest    string
	args    []string
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	opts, err := parseFlags(cmd, rest, stderr)
	if err != nil || opts == nil {
		return err
	}

	logger, err := newLogger(opts.profile.Logging, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()
	archive.SetLogger(logger)
	defer archive.SetLogger(nil)

	switch cmd {
	case "list":
		return runList(opts, stdout)
	case "cat":
		return runCat(opts, stdout)
	case "extract":
		return runExtract(opts, logger)
	case "browse":
		return runBrowse(opts)
	case "version":
		return runVersion(stdout)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseFlags(cmd string, args []string, stderr io.Writer) (*options, error) {
	var (
		profilePath string
		format      string
		compression string
		optString   string
		output      string
		logLevel    string
		opts        options
	)

	flagSet := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&profilePath, "profile", "", "profile file (default: "+config.DefaultProfilePath()+")")
	flagSet.StringVar(&format, "format", "", "archive formats to recognise, e.g. \"tar cpio\"")
	flagSet.StringVar(&compression, "compression", "", "compression filters to recognise")
	flagSet.StringVar(&optString, "options", "", "engine options, e.g. tar:hdrcharset=UTF-8")
	flagSet.StringVarP(&output, "output", "o", "", "listing encoding: text, json, yaml or cbor")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.digest, "digest", false, "include a BLAKE3 digest of each member in listings")
	flagSet.StringVarP(&opts.dest, "directory", "C", ".", "extraction directory")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, nil
		}
		return nil, err
	}

	p, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	if flagSet.Changed("format") {
		p.Format = format
	}
	if flagSet.Changed("compression") {
		p.Compression = compression
	}
	if flagSet.Changed("options") {
		p.Options = optString
	}
	if flagSet.Changed("output") {
		p.Output = strings.ToLower(output)
	}
	if flagSet.Changed("log-level") {
		p.Logging.Level = strings.ToLower(logLevel)
	}

	opts.profile = p
	opts.args = flagSet.Args()
	return &opts, nil
}

// newLogger builds the tool's zap logger. Console output is used when
// stderr is a terminal and the profile does not ask for JSON.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" || !isTerminal(stderr) {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(stderr), level)
	return zap.New(core), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// openArchive opens a read session over path, or standard input for "-".
func openArchive(p *config.Profile, path string) (*archive.ReadSession, error) {
	// Hide stdin's Close so the session cannot close it.
	var src io.Reader = struct{ io.Reader }{os.Stdin}
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		src = f
	}

	s, err := archive.Read(p.ReadConfig(archive.ReaderFrom(src, p.ReadSize)))
	if err != nil {
		if c, ok := src.(io.Closer); ok {
			c.Close()
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

func archiveArg(opts *options) (string, error) {
	if len(opts.args) == 0 {
		return "", fmt.Errorf("missing archive path (use - for standard input)")
	}
	return opts.args[0], nil
}
