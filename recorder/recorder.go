package recorder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentgrid/relay/logging"
)

// seqAlphabet holds the rotating single-character sequence tags used to
// disambiguate files written within the same millisecond.
const seqAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// maxCreateAttempts bounds the create/advance retry loop. Two full alphabet
// rotations outlast any realistic same-millisecond burst.
const maxCreateAttempts = 2 * len(seqAlphabet)

// Options configures a Recorder.
type Options struct {
	// Enabled gates all writes. A disabled recorder is a silent no-op.
	Enabled bool

	// Subdir optionally nests the run directory one level deeper, so
	// multiple processes can share a root without interleaving files.
	Subdir string

	// Clock supplies timestamps; overridable for tests.
	Clock func() time.Time

	// Logger receives write diagnostics.
	Logger logging.Logger
}

// Recorder writes time-ordered files under one run directory. Safe for
// concurrent use.
type Recorder struct {
	mu        sync.Mutex
	root      string
	enabled   bool
	clock     func() time.Time
	logger    logging.Logger
	lastStamp string
	idx       int
	rootMade  bool
}

// New creates a Recorder rooted at <baseDir>/<date>/<time>[/<subdir>]. The
// run directory is created lazily on the first save.
func New(baseDir string, optFns ...func(o *Options)) *Recorder {
	opts := Options{
		Enabled: true,
		Clock:   time.Now,
		Logger:  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	now := opts.Clock()
	root := filepath.Join(baseDir, now.Format("2006-01-02"), now.Format("15-04-05.000"))
	if opts.Subdir != "" {
		root = filepath.Join(root, opts.Subdir)
	}

	return &Recorder{
		root:    root,
		enabled: opts.Enabled,
		clock:   opts.Clock,
		logger:  opts.Logger,
	}
}

// WithDisabled turns the recorder into a no-op.
func WithDisabled() func(o *Options) {
	return func(o *Options) { o.Enabled = false }
}

// WithSubdir nests the run directory under an extra path component.
func WithSubdir(name string) func(o *Options) {
	return func(o *Options) { o.Subdir = name }
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) func(o *Options) {
	return func(o *Options) { o.Clock = clock }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Enabled reports whether saves will be written.
func (r *Recorder) Enabled() bool { return r.enabled }

// Dir returns the run directory this recorder writes into.
func (r *Recorder) Dir() string { return r.root }

// SaveText writes text under a timestamped name and returns the full path.
// Disabled recorders return ("", nil).
func (r *Recorder) SaveText(name, text string) (string, error) {
	return r.save(name, []byte(text))
}

// SaveBytes writes a binary blob under a timestamped name.
func (r *Recorder) SaveBytes(name string, data []byte) (string, error) {
	return r.save(name, data)
}

// SaveJSON marshals v with two-space indentation and writes it. With escape
// set, literal \n sequences inside the marshaled text are replaced by real
// newlines, which turns long embedded prompts back into readable blocks.
func (r *Recorder) SaveJSON(name string, v any, escape bool) (string, error) {
	if !r.enabled {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal json %q: %w", name, err)
	}

	data := buf.Bytes()
	if escape {
		data = []byte(strings.ReplaceAll(string(data), `\n`, "\n"))
	}

	return r.save(name, data)
}

// SaveYAML marshals v as YAML and writes it.
func (r *Recorder) SaveYAML(name string, v any) (string, error) {
	if !r.enabled {
		return "", nil
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal yaml %q: %w", name, err)
	}

	return r.save(name, data)
}

func (r *Recorder) save(name string, data []byte) (string, error) {
	if !r.enabled {
		return "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureRoot(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		path := filepath.Join(r.root, r.nextName(name))

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", fmt.Errorf("create %q: %w", path, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("write %q: %w", path, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("close %q: %w", path, cerr)
		}

		r.logger.Debug("record.saved", "path", path, "bytes", len(data))

		return path, nil
	}

	return "", ErrSequenceExhausted
}

// nextName stamps name with the current time and sequence tag. The sequence
// advances within one millisecond and resets when the stamp changes. Caller
// holds r.mu.
func (r *Recorder) nextName(name string) string {
	stamp := r.clock().Format("0102-150405.000")
	if stamp == r.lastStamp {
		r.idx = (r.idx + 1) % len(seqAlphabet)
	} else {
		r.idx = 0
		r.lastStamp = stamp
	}

	return fmt.Sprintf("%s.%c-%s", stamp, seqAlphabet[r.idx], name)
}

func (r *Recorder) ensureRoot() error {
	if r.rootMade {
		return nil
	}

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return fmt.Errorf("create record dir %q: %w", r.root, err)
	}

	r.rootMade = true

	return nil
}
