package orchestrator

import "github.com/video-stream/subtrans/internal/subtitle"

// ProviderSwitched is emitted when a cue moves on to the next fallback provider.
type ProviderSwitched struct {
	From string
	To   string
	File string
	Cue  string
}

func (ProviderSwitched) EventName() string { return "provider_switched" }

// Aborted is emitted once when the batch stops on an unrecoverable cue.
type Aborted struct {
	File   string
	Cue    string
	Reason string
}

func (Aborted) EventName() string { return "aborted" }

// StatusChanged carries the human-readable status line.
type StatusChanged struct {
	Status string
}

func (StatusChanged) EventName() string { return "status_changed" }

// CueTranslated is emitted after every successful cue.
type CueTranslated struct {
	FileIndex  int
	FileCount  int
	File       string
	Cue        subtitle.Cue
	Provider   string
	Translated int
	Total      int
	Percent    int
}

func (CueTranslated) EventName() string { return "cue_translated" }

// FileCompleted is emitted after a file's cues are all translated.
type FileCompleted struct {
	FileIndex int
	File      string
	Cues      int
}

func (FileCompleted) EventName() string { return "file_completed" }
