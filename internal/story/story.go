package story

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"storyreel/internal/services"
	"storyreel/internal/textutil"
)

// Shot is one indivisible unit of generated video within a story.
type Shot struct {
	ID          int    `yaml:"id"`
	Description string `yaml:"description"`
	// Mode records how the external generator produced the clip
	// ("t2v" or "i2v"); informational only to this pipeline.
	Mode string `yaml:"mode"`
	// KeepAudio flags a clip whose embedded audio should be retained
	// instead of being replaced by the mix. Exposed but not acted on.
	KeepAudio bool `yaml:"keep_audio"`
}

// Story is an immutable descriptor loaded from stories/<batch>/<name>.yaml.
type Story struct {
	Batch   string
	Name    string
	Path    string
	Title   string `yaml:"title"`
	Concept string `yaml:"concept"`
	Shots   []Shot `yaml:"shots"`
}

// ID returns the canonical batch/name story identifier.
func (s *Story) ID() string {
	return s.Batch + "/" + s.Name
}

// DisplayTitle returns the descriptor title, falling back to a title derived
// from the file name.
func (s *Story) DisplayTitle() string {
	if title := strings.TrimSpace(s.Title); title != "" {
		return title
	}
	return textutil.DisplayTitle(s.Name)
}

// Load reads and validates a story descriptor. shotCount is the governing
// policy's shot count; the descriptor must carry exactly that many shots
// with contiguous ids 1..N.
func Load(path string, shotCount int) (*Story, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "story", "load descriptor",
				fmt.Sprintf("Story descriptor not found at %s", path), err)
		}
		return nil, services.Wrap(services.ErrTransient, "story", "load descriptor", "", err)
	}

	var st Story
	if err := yaml.Unmarshal(raw, &st); err != nil {
		return nil, services.Wrap(services.ErrValidation, "story", "parse descriptor",
			fmt.Sprintf("Malformed YAML in %s", path), err)
	}

	st.Path = path
	st.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	st.Batch = filepath.Base(filepath.Dir(path))

	if err := st.validate(shotCount); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Story) validate(shotCount int) error {
	if len(s.Shots) != shotCount {
		return services.Wrap(services.ErrValidation, "story", "validate descriptor",
			fmt.Sprintf("Story %s has %d shots, policy requires %d", s.ID(), len(s.Shots), shotCount), nil)
	}

	seen := make(map[int]bool, len(s.Shots))
	for _, shot := range s.Shots {
		if shot.ID < 1 || shot.ID > shotCount {
			return services.Wrap(services.ErrValidation, "story", "validate descriptor",
				fmt.Sprintf("Story %s: shot id %d out of range 1..%d", s.ID(), shot.ID, shotCount), nil)
		}
		if seen[shot.ID] {
			return services.Wrap(services.ErrValidation, "story", "validate descriptor",
				fmt.Sprintf("Story %s: duplicate shot id %d", s.ID(), shot.ID), nil)
		}
		seen[shot.ID] = true
	}

	// Descriptors written by the generator list shots in order, but ordering
	// is re-established here so downstream stages can rely on it.
	sort.Slice(s.Shots, func(i, j int) bool { return s.Shots[i].ID < s.Shots[j].ID })
	return nil
}

// DiscoverBatch returns the descriptor paths of every story in a batch
// directory, sorted by name.
func DiscoverBatch(batchDir string) ([]string, error) {
	entries, err := os.ReadDir(batchDir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "story", "discover batch",
			fmt.Sprintf("Batch directory %s unreadable", batchDir), err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := filepath.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}
		paths = append(paths, filepath.Join(batchDir, name))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "story", "discover batch",
			fmt.Sprintf("No story descriptors in %s", batchDir), nil)
	}
	return paths, nil
}
