package orchestrator

import (
	"strconv"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/persist"
)

// Task is one candidate prepared for a worker. Tasks are immutable; a worker
// reports back only through the Outcome it returns.
type Task struct {
	// Seq is the candidate's position in the submitted list.
	Seq int

	// Key identifies the candidate in the state store and the report.
	Key string

	// Artifact is the top-level resource to resolve and bundle.
	Artifact *model.SourceResource

	// OutputName names the artifact's output directory. It is unique within
	// a run; empty means the artifact name.
	OutputName string
}

// processedKey is the key of the run's processed-set: the source path, or the
// identity for resources that were not read from a file.
func (t Task) processedKey() string {
	if t.Artifact.SourcePath != "" {
		return t.Artifact.SourcePath
	}
	return t.Artifact.Identity()
}

// outputNames gives every distinct candidate its own output directory name.
// The first candidate keeps its artifact name; a later one with the same name
// gets "<name>-<id>", then a numeric suffix. Names are compared
// case-insensitively. Repeats of the same source share a name.
func outputNames(tasks []Task) []string {
	names := make([]string, len(tasks))
	byKey := make(map[string]string, len(tasks))
	used := make(map[string]bool, len(tasks))
	claim := func(name string) bool {
		key := strings.ToLower(name)
		if used[key] {
			return false
		}
		used[key] = true
		return true
	}

	for i, t := range tasks {
		pk := t.processedKey()
		if name, ok := byKey[pk]; ok {
			names[i] = name
			continue
		}
		base := persist.DirName(t.Artifact.ArtifactName())
		name := base
		if !claim(name) {
			if t.Artifact.ID != "" {
				name = persist.DirName(base + "-" + t.Artifact.ID)
			}
			for n := 2; !claim(name); n++ {
				name = base + "-" + strconv.Itoa(n)
			}
		}
		byKey[pk] = name
		names[i] = name
	}
	return names
}
