package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/google/uuid"
)

// TaskCommand is the hidden CLI command that executes one isolated task.
const TaskCommand = "__task"

// Task is a unit of side-effecting work. Run must report its own failures; it returns nothing.
//
// Tasks cross the process boundary as JSON, so exported fields are the whole of their state.
type Task interface {
	Kind() string
	Run()
}

// Decoder rebuilds a [Task] from its JSON payload.
type Decoder func(payload []byte) (Task, error)

// JSONDecoder returns a [Decoder] that unmarshals into a new T.
func JSONDecoder[T Task]() Decoder {
	return func(payload []byte) (Task, error) {
		var t T
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Registry maps task kinds to decoders. The parent and the child process must register the same kinds.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds a decoder for kind, replacing any previous one.
func (r *Registry) Register(kind string, dec Decoder) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[kind] = dec
	return r
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.decoders[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.decoders))
	for k := range r.decoders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Decode rebuilds a task of kind from payload.
func (r *Registry) Decode(kind string, payload []byte) (Task, error) {
	r.mu.RLock()
	dec, ok := r.decoders[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownTaskKind, kind)
	}

	t, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s task: %v", shared.ErrInvalidInput, kind, err)
	}
	return t, nil
}

// RunnerOpts configures a [Runner].
type RunnerOpts struct {
	Isolate    bool
	Registry   *Registry
	Logger     *log.Logger
	Executable string                     // defaults to os.Executable()
	Args       func(kind string) []string // defaults to TaskCommand, kind
	Env        []string                   // appended to the parent's environment
	Stderr     io.Writer                  // child stderr, defaults to os.Stderr
}

// Runner dispatches tasks to child processes without waiting for them.
type Runner struct {
	isolate  bool
	registry *Registry
	logger   *log.Logger
	exe      string
	args     func(string) []string
	env      []string
	stderr   io.Writer

	wg sync.WaitGroup
}

// NewRunner creates a [Runner]. When the executable cannot be resolved, isolation is turned off
// with a warning.
func NewRunner(opts RunnerOpts) *Runner {
	r := &Runner{
		isolate:  opts.Isolate,
		registry: opts.Registry,
		logger:   opts.Logger,
		exe:      opts.Executable,
		args:     opts.Args,
		env:      opts.Env,
		stderr:   opts.Stderr,
	}
	if r.registry == nil {
		r.registry = NewRegistry()
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	if r.args == nil {
		r.args = func(kind string) []string { return []string{TaskCommand, kind} }
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}

	if r.isolate && r.exe == "" {
		exe, err := os.Executable()
		if err != nil {
			r.logger.Warn("task isolation disabled", "err", fmt.Errorf("%w: %v", shared.ErrIsolationUnavailable, err))
			r.isolate = false
		}
		r.exe = exe
	}
	return r
}

// Isolated reports whether tasks are started in child processes.
func (r *Runner) Isolated() bool {
	return r.isolate
}

// Dispatch starts t and returns without waiting for it.
//
// If the task cannot be isolated it runs inline, blocking the caller, and a warning is logged.
// Dispatch never panics on behalf of t.
func (r *Runner) Dispatch(t Task) {
	id := uuid.NewString()
	logger := r.logger.With("task", t.Kind(), "id", id)

	if !r.isolate {
		r.runInline(logger, t)
		return
	}

	if err := r.start(id, t); err != nil {
		logger.Warn("running task inline, the scan loop blocks until it finishes", "err", err)
		r.runInline(logger, t)
		return
	}
	logger.Debug("task dispatched")
}

func (r *Runner) start(id string, t Task) error {
	kind := t.Kind()
	if !r.registry.Has(kind) {
		return fmt.Errorf("%w: %w: %q", shared.ErrIsolationUnavailable, shared.ErrUnknownTaskKind, kind)
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: encode task: %v", shared.ErrIsolationUnavailable, err)
	}

	cmd := exec.Command(r.exe, r.args(kind)...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = r.stderr
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Env = append(cmd.Env, "DECKLOG_TASK_ID="+id)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrIsolationUnavailable, err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := cmd.Wait(); err != nil {
			r.logger.Warn("isolated task exited with error", "task", kind, "id", id, "err", err)
		}
	}()
	return nil
}

func (r *Runner) runInline(logger *log.Logger, t Task) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("task panicked", "panic", p)
		}
	}()
	t.Run()
}

// Wait blocks until every dispatched child process has been reaped.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// ServeTask is the child side of an isolated task: it decodes kind from in and runs it.
//
// A panic in the task is recovered and returned as an error so the process can exit non-zero.
func ServeTask(reg *Registry, kind string, in io.Reader, logger *log.Logger) (err error) {
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read task payload: %w", err)
	}

	t, err := reg.Decode(kind, payload)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", kind, p)
		}
	}()

	logger.Debug("running task", "task", kind, "id", os.Getenv("DECKLOG_TASK_ID"))
	t.Run()
	return nil
}
