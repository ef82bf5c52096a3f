package listings

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"homescope/server/internal/models"
)

// maxLineSize bounds a single scraper output line. Listing objects are small;
// anything larger is noise.
const maxLineSize = 1024 * 1024

// Adapter runs the listing scraper as a child process and re-emits its
// line-delimited JSON output as classified events, one at a time, as they
// arrive. The full result set is never buffered before emitting.
type Adapter struct {
	logger      *logrus.Logger
	interpreter string
	scriptPath  string
	killDelay   time.Duration
}

// NewAdapter creates a listings adapter for the given scraper script.
func NewAdapter(logger *logrus.Logger, interpreter, scriptPath string, killDelay time.Duration) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if killDelay <= 0 {
		killDelay = 5 * time.Second
	}
	return &Adapter{
		logger:      logger,
		interpreter: interpreter,
		scriptPath:  scriptPath,
		killDelay:   killDelay,
	}
}

// Stream spawns the scraper for one postcode and returns its event channel.
// The channel always carries exactly one terminal event (complete or error)
// before closing, unless ctx is cancelled first. On cancellation the child
// receives SIGTERM, escalating to SIGKILL after the kill delay, and no
// further events are forwarded.
func (a *Adapter) Stream(ctx context.Context, postcode models.PostcodeQuery) <-chan Event {
	out := make(chan Event)
	go a.run(ctx, postcode, out)
	return out
}

func (a *Adapter) run(ctx context.Context, postcode models.PostcodeQuery, out chan<- Event) {
	defer close(out)

	cmd := exec.CommandContext(ctx, a.interpreter, a.scriptPath, "--postcode", postcode.String())
	cmd.Cancel = func() error {
		// Give the child a chance to shut the browser down cleanly.
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = a.killDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		a.emit(ctx, out, Event{Kind: EventError, Message: fmt.Sprintf("failed to create stdout pipe: %v", err)})
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		a.emit(ctx, out, Event{Kind: EventError, Message: fmt.Sprintf("failed to create stderr pipe: %v", err)})
		return
	}

	a.logger.WithFields(logrus.Fields{
		"postcode": postcode.String(),
		"script":   a.scriptPath,
	}).Info("Starting listing scraper")

	if err := cmd.Start(); err != nil {
		a.emit(ctx, out, Event{Kind: EventError, Message: fmt.Sprintf("failed to start scraper: %v", err)})
		return
	}

	// Stderr is diagnostic text only, never control flow.
	go a.drainStderr(stderr)

	sawTerminal := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := classifyLine(line)
		if err != nil {
			a.logger.WithError(err).Debug("Dropping malformed scraper line")
			continue
		}

		if sawTerminal {
			// Nothing after a terminal event is forwarded.
			continue
		}
		if event.Kind == EventError || event.Kind == EventComplete {
			sawTerminal = true
		}
		if !a.emit(ctx, out, event) {
			break
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		a.logger.WithError(err).Error("Scraper output scanner error")
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		a.logger.WithField("postcode", postcode.String()).Info("Scraper cancelled")
		return
	}

	if sawTerminal {
		return
	}
	// The scraper never emitted an explicit terminal line: synthesize one
	// from the exit code so the stream always closes deterministically.
	if waitErr != nil {
		a.logger.WithError(waitErr).Error("Scraper exited without a terminal message")
		a.emit(ctx, out, Event{Kind: EventError, Message: fmt.Sprintf("scraper exited abnormally: %v", waitErr)})
		return
	}
	a.emit(ctx, out, Event{Kind: EventComplete, Status: StatusComplete})
}

// emit forwards one event unless the run was cancelled. Returns false when
// the consumer is gone.
func (a *Adapter) emit(ctx context.Context, out chan<- Event, event Event) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Adapter) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		a.logger.WithField("stream", "scraper-stderr").Debug(scanner.Text())
	}
}
