package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	LoadEnv()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code: 0 success, 1 run
// failure, 2 drift detected, 3 bad flags or config.
func run(args []string, stdout, stderr io.Writer) int {
	a, err := newApp(stdout, stderr, func() time.Time { return time.Now().UTC() })
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 3
	}
	return execute(a, args)
}

func execute(a *app, args []string) int {
	root := newRootCommand(a)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(a.stderr, "Error:", ee.msg)
			return ee.code
		}
		fmt.Fprintln(a.stderr, "Error:", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer, now func() time.Time) (*app, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, stdout: stdout, stderr: stderr, now: now, staged: gitStagedFiles}, nil
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "grcgraph",
		Short:         "Build and query the compliance document graph",
		Long:          "grcgraph turns policies, procedures, risks, controls and evidence into a computed graph, reports and review warnings.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get cwd: %w", err)
			}
			return a.init(cwd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return codeError(3, "invalid flags: %s", err)
	})
	BindFlags(root, &a.cfg)

	root.AddCommand(
		newBuildCommand(a),
		newPropagateCommand(a),
		newCheckCommand(a),
		newReportCommand(a),
		newEvidenceCommand(a),
		newRisksCommand(a),
		newControlsCommand(a),
	)
	return root
}
