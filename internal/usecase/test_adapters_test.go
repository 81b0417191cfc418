package usecase

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// testFileSystem is backed by the real OS. Operations on paths containing a
// key of failCopy / failMkdir / failRemove fail with the mapped error.
type testFileSystem struct {
	mu         sync.Mutex
	failCopy   map[string]error
	failMkdir  map[string]error
	failRemove map[string]error
	failLink   error
	failList   error
	copies     int
	links      int
}

func newTestFileSystem() *testFileSystem {
	return &testFileSystem{}
}

func matchFailure(m map[string]error, path string) error {
	for key, err := range m {
		if strings.Contains(filepath.ToSlash(path), key) {
			return err
		}
	}
	return nil
}

func safeFileMode(perm int, fallback fs.FileMode) fs.FileMode {
	if perm < 0 || perm > 0o777 {
		return fallback
	}
	// #nosec G115 -- perm validated to be within safe range.
	return fs.FileMode(perm)
}

func (a *testFileSystem) CreateDir(ctx context.Context, path string, perm int) error {
	_ = ctx
	if err := matchFailure(a.failMkdir, path); err != nil {
		return err
	}
	return os.MkdirAll(path, safeFileMode(perm, 0o755))
}

func (a *testFileSystem) RemoveAll(ctx context.Context, path string) error {
	_ = ctx
	if err := matchFailure(a.failRemove, path); err != nil {
		return err
	}
	return os.RemoveAll(path)
}

func (a *testFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapperTest{info}, nil
}

func (a *testFileSystem) Lstat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapperTest{info}, nil
}

func (a *testFileSystem) Walk(ctx context.Context, root string, walkFn WalkFunc) error {
	_ = ctx
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		var fileInfo FileInfo
		if info != nil {
			fileInfo = &fileInfoWrapperTest{info}
		}
		return walkFn(path, fileInfo, err)
	})
}

func (a *testFileSystem) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	_ = ctx
	if a.failList != nil {
		return nil, a.failList
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, &dirEntryWrapperTest{entry})
	}
	return result, nil
}

func (a *testFileSystem) CreateDirExclusive(ctx context.Context, path string, perm int) error {
	_ = ctx
	if err := matchFailure(a.failMkdir, path); err != nil {
		return err
	}
	return os.Mkdir(path, safeFileMode(perm, 0o755))
}

func (a *testFileSystem) CopyFile(ctx context.Context, src, dst string) (int64, error) {
	_ = ctx
	if err := matchFailure(a.failCopy, src); err != nil {
		return 0, err
	}
	// #nosec G304 -- test paths are controlled by the test harness.
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return 0, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return 0, err
	}
	a.mu.Lock()
	a.copies++
	a.mu.Unlock()
	return int64(len(data)), nil
}

func (a *testFileSystem) Link(ctx context.Context, oldname, newname string) error {
	_ = ctx
	if a.failLink != nil {
		return a.failLink
	}
	if err := os.Link(oldname, newname); err != nil {
		return err
	}
	a.mu.Lock()
	a.links++
	a.mu.Unlock()
	return nil
}

func (a *testFileSystem) Move(ctx context.Context, src, dst string) error {
	_ = ctx
	return os.Rename(src, dst)
}

func (a *testFileSystem) Readlink(ctx context.Context, path string) (string, error) {
	_ = ctx
	return os.Readlink(path)
}

func (a *testFileSystem) Symlink(ctx context.Context, target, path string) error {
	_ = ctx
	return os.Symlink(target, path)
}

func (a *testFileSystem) Abs(ctx context.Context, path string) (string, error) {
	_ = ctx
	return filepath.Abs(path)
}

func (a *testFileSystem) EvalSymlinks(ctx context.Context, path string) (string, error) {
	_ = ctx
	return filepath.EvalSymlinks(path)
}

func (a *testFileSystem) Join(elements ...string) string { return filepath.Join(elements...) }
func (a *testFileSystem) Base(path string) string        { return filepath.Base(path) }
func (a *testFileSystem) Dir(path string) string         { return filepath.Dir(path) }
func (a *testFileSystem) Rel(basepath, targpath string) (string, error) {
	return filepath.Rel(basepath, targpath)
}
func (a *testFileSystem) Clean(path string) string { return filepath.Clean(path) }
func (a *testFileSystem) IsNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}
func (a *testFileSystem) IsExist(err error) bool { return os.IsExist(err) }
func (a *testFileSystem) IsPermission(err error) bool {
	return os.IsPermission(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}

type fileInfoWrapperTest struct {
	info fs.FileInfo
}

func (f *fileInfoWrapperTest) Name() string       { return f.info.Name() }
func (f *fileInfoWrapperTest) Size() int64        { return f.info.Size() }
func (f *fileInfoWrapperTest) Mode() int          { return int(f.info.Mode()) }
func (f *fileInfoWrapperTest) ModTime() time.Time { return f.info.ModTime() }
func (f *fileInfoWrapperTest) IsDir() bool        { return f.info.IsDir() }
func (f *fileInfoWrapperTest) IsSymlink() bool    { return f.info.Mode()&os.ModeSymlink != 0 }
func (f *fileInfoWrapperTest) IsRegular() bool    { return f.info.Mode().IsRegular() }
func (f *fileInfoWrapperTest) Sys() interface{}   { return f.info.Sys() }

type dirEntryWrapperTest struct {
	entry fs.DirEntry
}

func (d *dirEntryWrapperTest) Name() string { return d.entry.Name() }
func (d *dirEntryWrapperTest) IsDir() bool  { return d.entry.IsDir() }

// scriptedProbe fails the first failures calls, then succeeds. With
// failures < 0 it always fails.
type scriptedProbe struct {
	mu       sync.Mutex
	failures int
	calls    int
	opts     []ProbeOptions
}

var errProbeDown = errors.New("destination unreachable")

func (p *scriptedProbe) Probe(ctx context.Context, root string, opts ProbeOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.opts = append(p.opts, opts)
	if p.failures < 0 || p.calls <= p.failures {
		return errProbeDown
	}
	return nil
}

func (p *scriptedProbe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// scriptedOperator returns decisions in order, then DecisionAbort.
type scriptedOperator struct {
	mu        sync.Mutex
	decisions []Decision
	calls     int
	messages  []string
}

func (o *scriptedOperator) Decide(ctx context.Context, message string) (Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.messages = append(o.messages, message)
	if len(o.decisions) == 0 {
		return DecisionAbort, nil
	}
	d := o.decisions[0]
	o.decisions = o.decisions[1:]
	return d, nil
}

// fakeClock advances by step on every Now call and records sleeps.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:  time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local),
		step: time.Second,
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type recordingProgress struct {
	mu       sync.Mutex
	total    int
	advanced int
	events   int
	finished bool
}

func (p *recordingProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

func (p *recordingProgress) Advance(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advanced += n
	p.events++
}

func (p *recordingProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
}

type fakeJournal struct {
	mu      sync.Mutex
	records []RunRecord
	err     error
}

func (j *fakeJournal) Record(ctx context.Context, rec RunRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	rec.ID = int64(len(j.records) + 1)
	j.records = append(j.records, rec)
	return nil
}

func (j *fakeJournal) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	out := make([]RunRecord, 0, len(j.records))
	for i := len(j.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.records[i])
	}
	return out, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (n *fakeNotifier) Send(ctx context.Context, title, message, sound string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	return nil
}

type fakeConfigPort struct {
	saved map[string]ConfigFile
	err   error
}

func (c *fakeConfigPort) Load(ctx context.Context, path string) (ConfigFile, error) {
	if cfg, ok := c.saved[path]; ok {
		return cfg, nil
	}
	return DefaultConfigFile(), nil
}

func (c *fakeConfigPort) Save(ctx context.Context, path string, cfg ConfigFile) error {
	if c.err != nil {
		return c.err
	}
	if c.saved == nil {
		c.saved = make(map[string]ConfigFile)
	}
	c.saved[path] = cfg
	return os.WriteFile(path, []byte("# test config\n"), 0o600)
}

type fakeScheduler struct {
	ticks int
	spec  string
}

func (s *fakeScheduler) Run(ctx context.Context, spec string, job func(context.Context)) error {
	s.spec = spec
	for range s.ticks {
		job(ctx)
	}
	return nil
}

type testEnv struct {
	fs       *testFileSystem
	probe    *scriptedProbe
	operator *scriptedOperator
	clock    *fakeClock
	progress *recordingProgress
	journal  *fakeJournal
	notifier *fakeNotifier
	deps     *Dependencies
}

func newTestEnv() *testEnv {
	env := &testEnv{
		fs:       newTestFileSystem(),
		probe:    &scriptedProbe{},
		operator: &scriptedOperator{},
		clock:    newFakeClock(),
		progress: &recordingProgress{},
		journal:  &fakeJournal{},
		notifier: &fakeNotifier{},
	}
	env.deps = &Dependencies{
		FileSystem:   env.fs,
		Probe:        env.probe,
		Operator:     env.operator,
		Progress:     env.progress,
		Clock:        env.clock,
		Config:       &fakeConfigPort{},
		Notification: env.notifier,
		Journal:      env.journal,
	}
	return env
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 -- test paths are controlled by the test harness.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	return string(data)
}

func snapshotNames(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && IsSnapshotName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names
}
