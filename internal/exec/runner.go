package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	osexec "os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrBusy means the execution queue is full and the request was rejected.
	ErrBusy = errors.New("execution queue is full")
	// ErrUnknownLanguage means no registered language matches the request.
	ErrUnknownLanguage = errors.New("unknown language")
)

// Result carries the outcome of one execution request. Err is nil on a clean
// run; compile diagnostics and runtime errors arrive through Stderr.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// Request is one execution job. Deliver is invoked exactly once, from a
// worker goroutine, with the outcome.
type Request struct {
	Language string
	Source   string
	Deliver  func(Result)
}

// Config controls the runner pool.
type Config struct {
	ScratchDir string
	Timeout    time.Duration
	Workers    int
	QueueDepth int
}

// Runner executes submitted source snippets through external toolchains.
// Each request gets its own scratch file and a hard wall-clock timeout;
// admission is bounded by a fixed worker pool and queue.
type Runner struct {
	cfg   Config
	langs map[string]Language
	queue chan Request
	log   *zerolog.Logger
}

// NewRunner builds a runner and creates the scratch directory.
func NewRunner(cfg Config, langs []Language, logger *zerolog.Logger) (*Runner, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(os.TempDir(), "pairpad")
	}

	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	r := &Runner{
		cfg:   cfg,
		langs: make(map[string]Language),
		queue: make(chan Request, cfg.QueueDepth),
		log:   logger,
	}
	for _, l := range langs {
		r.Register(l)
	}
	return r, nil
}

// Register adds a language to the registry. Call before Start.
func (r *Runner) Register(l Language) {
	r.langs[l.Name] = l
}

// Languages returns the registered language names, sorted.
func (r *Runner) Languages() []string {
	names := make([]string, 0, len(r.langs))
	for name := range r.langs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for i := 0; i < r.cfg.Workers; i++ {
		go r.worker(ctx)
	}
}

// Submit enqueues a request without blocking. Returns ErrBusy when the
// queue is full and ErrUnknownLanguage for unregistered languages.
func (r *Runner) Submit(req Request) error {
	if _, ok := r.langs[req.Language]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, req.Language)
	}

	select {
	case r.queue <- req:
		return nil
	default:
		return ErrBusy
	}
}

func (r *Runner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-r.queue:
			res := r.execute(ctx, req)
			if req.Deliver != nil {
				req.Deliver(res)
			}
		}
	}
}

// execute walks one request through write, optional compile, run, and cleanup.
func (r *Runner) execute(ctx context.Context, req Request) Result {
	lang := r.langs[req.Language]

	id := strings.ToLower(ulid.Make().String())
	src := filepath.Join(r.cfg.ScratchDir, id+lang.Ext)
	bin := filepath.Join(r.cfg.ScratchDir, id+".out")
	defer r.cleanup(src, bin)

	if err := os.WriteFile(src, []byte(req.Source), 0o600); err != nil {
		r.log.Error().Err(err).Str("path", src).Msg("write scratch file")
		return Result{Err: fmt.Errorf("write scratch file: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if lang.compiled() {
		_, stderr, err := runCommand(ctx, expandArgs(lang.Compile, src, bin))
		if err != nil {
			return Result{Stderr: stderr, Err: fmt.Errorf("compile: %w", err)}
		}
	}

	stdout, stderr, err := runCommand(ctx, expandArgs(lang.Run, src, bin))
	if err != nil {
		return Result{Stdout: stdout, Stderr: stderr, Err: fmt.Errorf("run: %w", err)}
	}

	return Result{Stdout: stdout, Stderr: stderr}
}

// runCommand runs argv under ctx, capturing stdout and stderr. A deadline
// hit surfaces as a wrapped context.DeadlineExceeded after the process has
// been killed.
func runCommand(ctx context.Context, argv []string) (string, string, error) {
	cmd := osexec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		err = fmt.Errorf("process killed after timeout: %w", context.DeadlineExceeded)
	}

	return stdout.String(), stderr.String(), err
}

// cleanup removes scratch artifacts. Absent files are fine: compile
// failures never produce a binary, and cleanup may run more than once.
func (r *Runner) cleanup(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn().Err(err).Str("path", p).Msg("remove scratch file")
		}
	}
}
