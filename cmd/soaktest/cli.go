package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-soak/linecodec"
	"github.com/arloliu/go-soak/logger"
	"github.com/arloliu/go-soak/soak"
	"github.com/arloliu/go-soak/transport"
	"github.com/spf13/cobra"
)

// options mirrors the command line flags.
type options struct {
	port          string
	baud          int
	testSeconds   uint64
	intervalMs    uint64
	roundTimeout  uint64
	roundInterval uint64
	maxFailCount  uint32
	verbose       int
	suite         string
	suitesFile    string
	progressSecs  uint64
	console       bool
	eol           string
	maxFrameSize  int
}

var eolMarkers = map[string]string{
	"crlf": "\r\n",
	"lf":   "\n",
}

type app struct {
	opts     options
	stdout   io.Writer
	exitCode int
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout}

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}

	return a.exitCode
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "soaktest PORT",
		Short:         "Continuous read/write soak test for serial devices",
		Long:          "soaktest sends a fixed command every round and checks that a response containing the expected text arrives before the round timeout.",
		Version:       versionString(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.opts.port = args[0]
			return a.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&a.opts.baud, "baud", "b", transport.DefaultBaud, "Baud rate")
	f.Uint64VarP(&a.opts.testSeconds, "test-seconds", "t", 10, "Test total time in seconds")
	f.Uint64VarP(&a.opts.intervalMs, "interval", "i", 1000, "Test interval in milliseconds")
	f.Uint64Var(&a.opts.roundTimeout, "round-timeout", 30, "Round max timeout in milliseconds")
	f.Uint64Var(&a.opts.roundInterval, "round-interval", 5, "Reader poll interval in milliseconds")
	f.Uint32VarP(&a.opts.maxFailCount, "max-fail-count", "m", soak.DefaultMaxFailCount, "Max continuous fail count")
	f.CountVarP(&a.opts.verbose, "verbose", "v", "Increase verbosity")
	f.StringVarP(&a.opts.suite, "test-suite", "s", soak.SuiteRegular, "Test suite")
	f.StringVar(&a.opts.suitesFile, "suites", "", "YAML file with additional test suites")
	f.Uint64Var(&a.opts.progressSecs, "progress", 0, "Log progress every N seconds (0 disables)")
	f.BoolVar(&a.opts.console, "console", false, "Human readable console logs instead of JSON")
	f.StringVar(&a.opts.eol, "eol", "crlf", "End-of-line marker: crlf or lf")
	f.IntVar(&a.opts.maxFrameSize, "max-frame", linecodec.DefaultMaxFrameSize, "Max bytes buffered without an end-of-line marker")

	return cmd
}

func (a *app) run(ctx context.Context) error {
	opts := a.opts

	l := logger.NewSlog(logger.LevelFromVerbosity(opts.verbose), false,
		logger.WithOutput(a.stdout),
		logger.WithConsole(opts.console),
	)
	logger.SetDefault(l)
	l.Debug("options", "port", opts.port, "baud", opts.baud, "suite", opts.suite, "version", versionString())

	tc, err := a.testCase()
	if err != nil {
		return err
	}

	codec, err := a.codec()
	if err != nil {
		return err
	}

	cfg, err := soak.NewConfig(tc,
		soak.WithTestDuration(time.Duration(opts.testSeconds)*time.Second),
		soak.WithRoundInterval(time.Duration(opts.intervalMs)*time.Millisecond),
		soak.WithRoundTimeout(time.Duration(opts.roundTimeout)*time.Millisecond),
		soak.WithPollInterval(time.Duration(opts.roundInterval)*time.Millisecond),
		soak.WithMaxFailCount(opts.maxFailCount),
		soak.WithProgressInterval(time.Duration(opts.progressSecs)*time.Second),
		soak.WithLogger(l),
	)
	if err != nil {
		return err
	}

	tcfg, err := transport.NewConfig(opts.port,
		transport.WithBaud(opts.baud),
		transport.WithLogger(l),
	)
	if err != nil {
		return err
	}

	port, err := transport.Open(ctx, tcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := port.Close(); err != nil {
			l.Debug("close transport", "error", err)
		}
	}()

	runner, err := soak.NewRunner(cfg, port, codec)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	a.exitCode = report.ExitCode()
	if err != nil && !soak.IsFailure(err) {
		return err
	}

	return nil
}

func (a *app) testCase() (soak.TestCase, error) {
	catalog := soak.DefaultCatalog()
	if a.opts.suitesFile != "" {
		extra, err := soak.LoadCatalogFile(a.opts.suitesFile)
		if err != nil {
			return soak.TestCase{}, err
		}
		catalog = catalog.Merge(extra)
	}

	return catalog.Lookup(a.opts.suite)
}

func (a *app) codec() (*linecodec.Codec, error) {
	delim, ok := eolMarkers[a.opts.eol]
	if !ok {
		return nil, fmt.Errorf("unknown end-of-line marker %q, want crlf or lf", a.opts.eol)
	}

	return linecodec.New(
		linecodec.WithDelimiter(delim),
		linecodec.WithMaxFrameSize(a.opts.maxFrameSize),
	)
}
