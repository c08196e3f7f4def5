package loader

import "replkit/internal/notify"

// EditorState answers whether a file is open in the front-facing
// editor. The query may be slow or never answer; the orchestrator
// bounds it and treats an expired query as "not the active file".
type EditorState interface {
	SelectedEditorContains(file string) bool
}

// Annotator retriggers diagnostics for a file. Fire-and-forget.
type Annotator interface {
	RestartAnalysis(file string)
}

// ProjectBuilder runs a full project build. ok=false means the build
// outcome could not be determined.
type ProjectBuilder interface {
	BuildProject(progress notify.Notifier) (built bool, ok bool)
}

// CacheInvalidator is the downstream-cache collaborator. The
// orchestrator invalidates; it never populates.
type CacheInvalidator interface {
	InvalidateDefinitionLocations(file string)
	InvalidateTypeInfo(file string)
	InvalidateNameInfo(file string)
	InvalidateBrowseIndex()
	InvalidateModuleBrowseIndex(module string)

	// WarmTypeInfo pre-computes type info around the given context,
	// an optimization for large generated test expressions.
	WarmTypeInfo(file, context string)
}

// NopAnnotator is an Annotator that does nothing, for callers without
// an analysis pipeline.
type NopAnnotator struct{}

func (NopAnnotator) RestartAnalysis(string) {}

// NopCaches is a CacheInvalidator that does nothing.
type NopCaches struct{}

func (NopCaches) InvalidateDefinitionLocations(string) {}
func (NopCaches) InvalidateTypeInfo(string)            {}
func (NopCaches) InvalidateNameInfo(string)            {}
func (NopCaches) InvalidateBrowseIndex()               {}
func (NopCaches) InvalidateModuleBrowseIndex(string)   {}
func (NopCaches) WarmTypeInfo(string, string)          {}
