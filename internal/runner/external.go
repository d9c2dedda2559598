package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultExternalBinary is the restoration CLI looked up on PATH.
const DefaultExternalBinary = "lada-cli"

const maxLogLines = 200

var (
	percentRe = regexp.MustCompile(`(\d{1,3})\s*%`)
	fpsRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:fps|it/s)`)
)

// External runs the restoration binary as a subprocess and maps its output to
// progress. Lines containing "NN%" drive progress; otherwise progress is
// estimated from elapsed time against the duration hint.
type External struct {
	Binary string
	Tick   time.Duration
	Log    zerolog.Logger

	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
	stat     func(string) (os.FileInfo, error)
	now      func() time.Time
}

func NewExternal(binary string) *External {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultExternalBinary
	}
	return &External{
		Binary:   binary,
		Tick:     300 * time.Millisecond,
		Log:      zerolog.Nop(),
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
		stat:     os.Stat,
		now:      time.Now,
	}
}

func (e *External) Name() string { return NameExternal }

// Path resolves the binary, returning "" when it is not installed.
func (e *External) Path() string {
	p, err := e.lookPath(e.Binary)
	if err != nil {
		return ""
	}
	return p
}

func (e *External) Available() bool { return e.Path() != "" }

// simulatedOnly options are never forwarded to the binary.
var simulatedOnly = map[string]bool{
	OptionStageSleep:      true,
	OptionSimulateFailure: true,
}

// BuildArgs returns the command line for p. Options become --kebab-case flags in
// key order; true booleans are bare flags and false booleans are dropped.
func BuildArgs(p Params) []string {
	args := []string{"--input", p.InputPath, "--output", p.OutputPath}
	if p.Detector != "" {
		args = append(args, "--mosaic-detection-model", p.Detector)
	}
	if p.Restorer != "" {
		args = append(args, "--mosaic-restoration-model", p.Restorer)
	}
	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		if !simulatedOnly[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		flag := "--" + strings.ReplaceAll(k, "_", "-")
		switch v := p.Options[k].(type) {
		case bool:
			if v {
				args = append(args, flag)
			}
		case nil:
			continue
		case float64:
			args = append(args, flag, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			args = append(args, flag, fmt.Sprint(v))
		}
	}
	return args
}

// percentToProgress maps a CLI percentage into the restoring band [0.3, 0.95].
func percentToProgress(pct float64) float64 {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p := 0.3 + pct/100*0.65
	if p > 0.95 {
		p = 0.95
	}
	return p
}

// timeEstimate guesses progress from elapsed time when the CLI prints no percentages.
func timeEstimate(elapsed time.Duration, durationHint int) float64 {
	hint := durationHint
	if hint <= 0 {
		hint = 30
	}
	maxExpected := float64(hint) * 1.2
	if maxExpected < 8 {
		maxExpected = 8
	}
	g := 0.3 + elapsed.Seconds()/maxExpected*0.6
	if g > 0.93 {
		g = 0.93
	}
	return g
}

// scanLinesCR splits on \n or \r so carriage-return progress bars yield lines.
func scanLinesCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (e *External) Execute(ctx context.Context, p Params, onProgress func(Progress)) (Result, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}
	if strings.TrimSpace(p.OutputPath) == "" {
		return Result{}, fmt.Errorf("%w: output path is required for %s", ErrInputInvalid, e.Binary)
	}
	if fi, err := e.stat(p.InputPath); err != nil {
		return Result{}, fmt.Errorf("%w: cannot access input %s: %v", ErrInputInvalid, p.InputPath, err)
	} else if fi.IsDir() {
		return Result{}, fmt.Errorf("%w: input %s is a directory", ErrInputInvalid, p.InputPath)
	}
	bin, err := e.lookPath(e.Binary)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s not found on PATH", ErrRunnerUnavailable, e.Binary)
	}

	start := e.now()
	onProgress(Progress{Stage: "probing", Percent: 0.05})

	args := BuildArgs(p)
	cmd := e.command(ctx, bin, args...)
	cmd.WaitDelay = 2 * time.Second
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		return Result{}, &ExecutionError{Stage: "starting", Detail: err.Error(), Err: err}
	}
	e.Log.Debug().Str("job_id", p.JobID).Str("bin", bin).Strs("args", args).Msg("external runner started")
	onProgress(Progress{Stage: "restoring", Percent: 0.3, Elapsed: e.now().Sub(start)})

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.CloseWithError(io.EOF)
		waitErr <- err
	}()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		sc.Split(scanLinesCR)
		for sc.Scan() {
			lines <- sc.Text()
		}
		// drain so the writer never blocks after a scan error
		_, _ = io.Copy(io.Discard, pr)
	}()

	tick := e.Tick
	if tick <= 0 {
		tick = 300 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var logs []string
	current := 0.3
	fps := 0.0
	for lines != nil {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			logs = append(logs, line)
			if len(logs) > maxLogLines {
				logs = logs[len(logs)-maxLogLines:]
			}
			if m := fpsRe.FindStringSubmatch(line); m != nil {
				if f, err := strconv.ParseFloat(m[1], 64); err == nil {
					fps = f
				}
			}
			if m := percentRe.FindStringSubmatch(line); m != nil {
				pct, _ := strconv.ParseFloat(m[1], 64)
				if next := percentToProgress(pct); next > current {
					current = next
				}
				onProgress(Progress{Stage: "restoring", Percent: current, FPS: fps, Elapsed: e.now().Sub(start)})
			}
		case <-ticker.C:
			elapsed := e.now().Sub(start)
			if g := timeEstimate(elapsed, p.DurationHintSeconds); g > current {
				current = g
				onProgress(Progress{Stage: "restoring", Percent: current, FPS: fps, Elapsed: elapsed})
			}
		}
	}

	if err := <-waitErr; err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Logs: logs}, &ExecutionError{Stage: "restoring", Detail: "interrupted", Err: ctxErr}
		}
		detail := strings.TrimSpace(strings.Join(logs, "\n"))
		if detail == "" {
			detail = e.Binary + " execution failed"
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = fmt.Sprintf("exit %d: %s", exitErr.ExitCode(), detail)
		}
		return Result{Logs: logs}, &ExecutionError{Stage: "restoring", Detail: detail, Err: err}
	}

	onProgress(Progress{Stage: "encoding", Percent: 0.97, FPS: fps, Elapsed: e.now().Sub(start)})
	onProgress(Progress{Stage: "done", Percent: 1.0, FPS: fps, Elapsed: e.now().Sub(start)})
	return Result{Runner: NameExternal, OutputPath: p.OutputPath, Elapsed: e.now().Sub(start), Logs: logs}, nil
}
