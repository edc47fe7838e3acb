// Package solver stages files for and invokes the external timetabling
// solver binary. Every job gets an isolated directory under the configured
// work dir so concurrent runs never share staging paths.
package solver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/acadplan/timetable-api/pkg/errors"
)

const (
	inputFileName  = "input.fet"
	outputFileName = "output_subgroups.xml"
)

// Config locates the solver binary and staging layout.
type Config struct {
	Binary         string
	WorkDir        string
	OutputRelPath  string
	Timeout        time.Duration
	StagingRetries int
}

// Runner drives one solver invocation per job workspace.
type Runner struct {
	cfg    Config
	logger *zap.Logger
}

// NewRunner builds a runner, applying defaults for unset fields.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = "fet-cl"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "./fet"
	}
	if cfg.OutputRelPath == "" {
		cfg.OutputRelPath = filepath.Join("timetables", "input", "input_subgroups.xml")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.StagingRetries <= 0 {
		cfg.StagingRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Workspace is the isolated staging directory of a single job.
type Workspace struct {
	JobID  string
	Root   string
	RunDir string
}

// InputPath is where the serialized document is written.
func (w *Workspace) InputPath() string {
	return filepath.Join(w.Root, inputFileName)
}

// OutputPath is where the staged-back solver result lands.
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.Root, outputFileName)
}

// Prepare creates the job's staging directories.
func (r *Runner) Prepare(jobID string) (*Workspace, error) {
	root := filepath.Join(r.cfg.WorkDir, jobID)
	runDir := filepath.Join(root, "run")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStagingIO.Code, appErrors.ErrStagingIO.Status, "create job workspace")
	}
	return &Workspace{JobID: jobID, Root: root, RunDir: runDir}, nil
}

// WriteInput persists the interchange document into the workspace.
func (r *Runner) WriteInput(ws *Workspace, data []byte) error {
	return r.withRetries("write input", func() error {
		return os.WriteFile(ws.InputPath(), data, 0o644)
	})
}

// StageInput copies the document into the solver's run directory.
func (r *Runner) StageInput(ws *Workspace) error {
	return r.withRetries("stage input", func() error {
		return copyFile(ws.InputPath(), filepath.Join(ws.RunDir, inputFileName))
	})
}

// Run invokes the solver against the staged input. Any spawn failure or
// non-zero exit is fatal for the run; solver failures usually mean infeasible
// or malformed input, so they are never retried.
func (r *Runner) Run(ctx context.Context, ws *Workspace) error {
	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.cfg.Binary, "--inputfile="+inputFileName)
	cmd.Dir = ws.RunDir

	started := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Sugar().Errorw("solver run failed",
			"job_id", ws.JobID, "binary", r.cfg.Binary, "output", truncate(string(output), 2048), "error", err)
		return appErrors.Wrap(err, appErrors.ErrSolverRuntime.Code, appErrors.ErrSolverRuntime.Status,
			fmt.Sprintf("solver %s failed", r.cfg.Binary))
	}

	r.logger.Sugar().Infow("solver run finished", "job_id", ws.JobID, "duration", time.Since(started))
	return nil
}

// StageOutput copies the solver's subgroup result back into the workspace.
// A missing result after a reported-successful run is its own failure kind:
// the solver claimed success but produced no output.
func (r *Runner) StageOutput(ws *Workspace) error {
	src := filepath.Join(ws.RunDir, r.cfg.OutputRelPath)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return appErrors.Clone(appErrors.ErrSolverNoOutput, fmt.Sprintf("expected solver output at %s", src))
		}
		return appErrors.Wrap(err, appErrors.ErrStagingIO.Code, appErrors.ErrStagingIO.Status, "stat solver output")
	}
	return r.withRetries("stage output", func() error {
		return copyFile(src, ws.OutputPath())
	})
}

// ReadOutput loads the staged-back result bytes.
func (r *Runner) ReadOutput(ws *Workspace) ([]byte, error) {
	data, err := os.ReadFile(ws.OutputPath())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStagingIO.Code, appErrors.ErrStagingIO.Status, "read solver output")
	}
	return data, nil
}

// Cleanup removes the job workspace. Best effort.
func (r *Runner) Cleanup(ws *Workspace) {
	if err := os.RemoveAll(ws.Root); err != nil {
		r.logger.Sugar().Warnw("workspace cleanup failed", "job_id", ws.JobID, "error", err)
	}
}

func (r *Runner) withRetries(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.cfg.StagingRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		r.logger.Sugar().Warnw("staging operation failed", "op", op, "attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return appErrors.Wrap(err, appErrors.ErrStagingIO.Code, appErrors.ErrStagingIO.Status,
		fmt.Sprintf("%s failed after %d attempts", op, r.cfg.StagingRetries))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
