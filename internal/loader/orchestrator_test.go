package loader

import (
	"sync"
	"testing"
	"time"

	"replkit/internal/notify"
	"replkit/internal/pool"
	"replkit/internal/project"
	"replkit/internal/rebuild"
	"replkit/internal/registry"
	"replkit/internal/repl"
	"replkit/internal/runner"
)

// ==================== Mock collaborators ====================

type fakeSession struct {
	mu       sync.Mutex
	state    repl.State
	outcome  *repl.LoadOutcome
	loads    int
	starts   int
	restarts int
	loaded   map[string]repl.IsFileLoaded
}

func newFakeSession(state repl.State, outcome *repl.LoadOutcome) *fakeSession {
	return &fakeSession{state: state, outcome: outcome, loaded: make(map[string]repl.IsFileLoaded)}
}

func (s *fakeSession) State() repl.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.state = repl.Available
	return nil
}

func (s *fakeSession) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restarts++
	s.state = repl.Available
	return nil
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = repl.Stopped
	return nil
}

func (s *fakeSession) Load(file string) *repl.LoadOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.state != repl.Available {
		return nil
	}
	return s.outcome
}

func (s *fakeSession) IsLoaded(file string) repl.IsFileLoaded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[file]
}

type fakeEditor struct {
	active bool
	block  bool
}

func (e *fakeEditor) SelectedEditorContains(string) bool {
	if e.block {
		select {} // never answers
	}
	return e.active
}

type fakeAnnotator struct {
	mu       sync.Mutex
	restarts int
}

func (a *fakeAnnotator) RestartAnalysis(string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restarts++
}

func (a *fakeAnnotator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.restarts
}

type fakeBuilder struct {
	mu    sync.Mutex
	built bool
	ok    bool
	calls int
}

func (b *fakeBuilder) BuildProject(notify.Notifier) (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return b.built, b.ok
}

func (b *fakeBuilder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type recordingCaches struct {
	mu        sync.Mutex
	defLoc    []string
	typeInfo  []string
	nameInfo  []string
	browse    int
	modBrowse []string
	warmed    []string
}

func (c *recordingCaches) InvalidateDefinitionLocations(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defLoc = append(c.defLoc, file)
}

func (c *recordingCaches) InvalidateTypeInfo(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typeInfo = append(c.typeInfo, file)
}

func (c *recordingCaches) InvalidateNameInfo(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nameInfo = append(c.nameInfo, file)
}

func (c *recordingCaches) InvalidateBrowseIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.browse++
}

func (c *recordingCaches) InvalidateModuleBrowseIndex(module string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modBrowse = append(c.modBrowse, module)
}

func (c *recordingCaches) WarmTypeInfo(file, context string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warmed = append(c.warmed, file)
}

// ==================== Fixture ====================

type fixture struct {
	orch      *Orchestrator
	proj      *registry.Project
	session   *fakeSession
	editor    *fakeEditor
	annotator *fakeAnnotator
	builder   *fakeBuilder
	caches    *recordingCaches
	workers   *pool.Pool
	rebuilds  *counter
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func testMeta() *project.Resolver {
	return project.NewResolver("/proj", []project.Package{
		{
			Name: "core",
			Root: "core",
			Stanzas: []project.Stanza{
				{Name: "core", Kind: project.KindLibrary, SourceDirs: []string{"src"}},
			},
		},
		{
			Name: "app",
			Root: "app",
			Stanzas: []project.Stanza{
				{Name: "app", Kind: project.KindLibrary, SourceDirs: []string{"src"}},
				{Name: "app-exe", Kind: project.KindExecutable, SourceDirs: []string{"exe"}, DependsOn: []string{"core"}},
				{Name: "app-test", Kind: project.KindTestSuite, SourceDirs: []string{"test"}, DependsOn: []string{"core"}},
			},
		},
	})
}

func newFixture(t *testing.T, session *fakeSession) *fixture {
	t.Helper()

	proj := registry.NewProject("test")
	proj.SetSession(registry.KindProject, session)

	f := &fixture{
		proj:      proj,
		session:   session,
		editor:    &fakeEditor{active: true},
		annotator: &fakeAnnotator{},
		builder:   &fakeBuilder{},
		caches:    &recordingCaches{},
		workers:   pool.New(4),
		rebuilds:  &counter{},
	}

	rebuildCommand := func(target string) runner.Command {
		f.rebuilds.inc()
		return runner.Command{Path: "true", Timeout: time.Second}
	}

	f.orch = New(
		proj,
		testMeta(),
		runner.New(notify.NewRecorder()),
		f.editor,
		f.annotator,
		f.builder,
		f.caches,
		f.workers,
		notify.NewRecorder(),
		rebuildCommand,
	)
	return f
}

// ==================== Load outcome handling ====================

func TestLoad_NoSessionOutcome(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, nil))

	res := f.orch.Load("app/src/App.x", "")
	f.workers.Wait()

	if res != nil {
		t.Errorf("Load = %v, want nil when the session produced no outcome", res)
	}
	if len(f.caches.defLoc) != 0 || len(f.caches.typeInfo) != 0 {
		t.Error("cache invalidation dispatched despite no load outcome")
	}
}

func TestLoad_SuccessInvalidatesAllCaches(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))

	res := f.orch.Load("app/src/App.x", "")
	f.workers.Wait()

	if res == nil || res.Failed {
		t.Fatalf("Load = %v, want successful result", res)
	}

	if len(f.caches.defLoc) != 1 || len(f.caches.typeInfo) != 1 {
		t.Error("per-file caches not invalidated")
	}
	if len(f.caches.nameInfo) != 1 {
		t.Error("name-info cache not invalidated on success")
	}
	if f.caches.browse != 1 {
		t.Errorf("browse index invalidated %d times, want 1", f.caches.browse)
	}
	if len(f.caches.modBrowse) != 1 || f.caches.modBrowse[0] != "App" {
		t.Errorf("module browse invalidation = %v, want [App]", f.caches.modBrowse)
	}
}

func TestLoad_FailureInvalidatesPerFileCachesOnly(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{
		Stderr: []string{"App.x:3:1: parse error"},
		Failed: true,
	}))

	res := f.orch.Load("app/src/App.x", "")
	f.workers.Wait()

	if res == nil || !res.Failed {
		t.Fatalf("Load = %v, want failed result", res)
	}
	if len(res.Stderr) != 1 {
		t.Errorf("Stderr = %v, want the compiler diagnostics", res.Stderr)
	}

	if len(f.caches.defLoc) != 1 || len(f.caches.typeInfo) != 1 {
		t.Error("per-file caches not invalidated")
	}
	if len(f.caches.nameInfo) != 0 || f.caches.browse != 0 || len(f.caches.modBrowse) != 0 {
		t.Error("failed load invalidated name-info or browse caches")
	}
}

func TestLoad_TestStanzaWarmsTypeInfo(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))

	f.orch.Load("app/test/Spec.x", "shouldBe 42")
	f.workers.Wait()

	if len(f.caches.warmed) != 1 || f.caches.warmed[0] != "app/test/Spec.x" {
		t.Errorf("warmed = %v, want [app/test/Spec.x]", f.caches.warmed)
	}
}

func TestLoad_ExecutableStanzaDoesNotWarm(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))

	f.orch.Load("app/exe/Main.x", "")
	f.workers.Wait()

	if len(f.caches.warmed) != 0 {
		t.Errorf("warmed = %v, want none for an executable file", f.caches.warmed)
	}
}

// ==================== Dependency rebuilds ====================

func TestLoad_ConcurrentLoadsDispatchOneRebuild(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))
	f.proj.Tracker().Record("core", rebuild.Pending{Target: "core:lib", Reason: "changed"})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.orch.Load("app/exe/Main.x", "")
		}()
	}
	wg.Wait()
	f.workers.Wait()

	if got := f.rebuilds.count(); got != 1 {
		t.Errorf("%d rebuilds dispatched, want exactly 1", got)
	}
	if f.session.restarts != 1 {
		t.Errorf("session restarted %d times, want 1", f.session.restarts)
	}
	if f.annotator.count() != 1 {
		t.Errorf("analysis retriggered %d times, want 1", f.annotator.count())
	}
}

func TestLoad_LibraryFileSkipsRebuildClaim(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))
	f.proj.Tracker().Record("core", rebuild.Pending{Target: "core:lib"})

	f.orch.Load("core/src/Data/Graph.x", "")
	f.workers.Wait()

	if got := f.rebuilds.count(); got != 0 {
		t.Errorf("%d rebuilds dispatched for a library file, want 0", got)
	}
	if _, ok := f.proj.Tracker().Claim("core"); !ok {
		t.Error("pending rebuild was consumed by a library-file load")
	}
}

func TestLoad_InactiveFileSkipsRebuildClaim(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))
	f.editor.active = false
	f.proj.Tracker().Record("core", rebuild.Pending{Target: "core:lib"})

	f.orch.Load("app/exe/Main.x", "")
	f.workers.Wait()

	if got := f.rebuilds.count(); got != 0 {
		t.Errorf("%d rebuilds dispatched for an inactive file, want 0", got)
	}
}

func TestLoad_EditorQueryExpiryMeansInactive(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Available, &repl.LoadOutcome{}))
	f.editor.block = true
	f.orch.editorTimeout = 20 * time.Millisecond
	f.proj.Tracker().Record("core", rebuild.Pending{Target: "core:lib"})

	start := time.Now()
	res := f.orch.Load("app/exe/Main.x", "")
	f.workers.Wait()

	if time.Since(start) > 5*time.Second {
		t.Fatal("editor query was not bounded")
	}
	if res == nil {
		t.Fatal("load skipped entirely; expiry must only mean inactive")
	}
	if got := f.rebuilds.count(); got != 0 {
		t.Errorf("%d rebuilds dispatched after query expiry, want 0", got)
	}
}

// ==================== Stopped-session recovery ====================

func TestLoad_StoppedSessionTriggersBuildAndStart(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Stopped, &repl.LoadOutcome{}))
	f.builder.built = true
	f.builder.ok = true

	f.orch.Load("app/src/App.x", "")
	f.workers.Wait()

	if f.builder.count() != 1 {
		t.Errorf("builder called %d times, want 1", f.builder.count())
	}
	if f.session.starts != 1 {
		t.Errorf("session started %d times, want 1", f.session.starts)
	}
	if f.annotator.count() != 1 {
		t.Errorf("analysis retriggered %d times, want 1", f.annotator.count())
	}
}

func TestLoad_BuildFailureLeavesSessionStopped(t *testing.T) {
	f := newFixture(t, newFakeSession(repl.Stopped, &repl.LoadOutcome{}))
	f.builder.built = false
	f.builder.ok = true

	res := f.orch.Load("app/src/App.x", "")
	f.workers.Wait()

	if res != nil {
		t.Errorf("Load = %v, want nil from a stopped session", res)
	}
	if f.session.starts != 0 {
		t.Error("session started despite failed build")
	}
	if f.annotator.count() != 0 {
		t.Error("analysis retriggered despite failed build")
	}
}

// ==================== Queries ====================

func TestIsBusy(t *testing.T) {
	session := newFakeSession(repl.Busy, nil)
	f := newFixture(t, session)

	if !f.orch.IsBusy() {
		t.Error("IsBusy = false with a busy session")
	}
	if !f.orch.IsFileBusy("app/src/App.x") {
		t.Error("IsFileBusy = false for a project file with a busy session")
	}
	if f.orch.IsFileBusy("outside/of/project.x") {
		t.Error("IsFileBusy = true for a file outside the project")
	}

	session.mu.Lock()
	session.state = repl.Available
	session.mu.Unlock()
	if f.orch.IsBusy() {
		t.Error("IsBusy = true with an available session")
	}
}

func TestIsLoaded_Delegates(t *testing.T) {
	session := newFakeSession(repl.Available, nil)
	session.loaded["app/src/App.x"] = repl.Loaded
	f := newFixture(t, session)

	if got := f.orch.IsLoaded("app/src/App.x"); got != repl.Loaded {
		t.Errorf("IsLoaded = %v, want Loaded", got)
	}
	if got := f.orch.IsLoaded("app/src/Other.x"); got != repl.NotLoaded {
		t.Errorf("IsLoaded = %v, want NotLoaded", got)
	}
}
