package assets

import (
	"fmt"
	"strconv"
	"strings"

	"storyreel/internal/services"
)

// MissingShotsError reports every absent shot clip for a story, so one rerun
// of the generator can fill all gaps.
type MissingShotsError struct {
	StoryID string
	ShotIDs []int
}

func (e *MissingShotsError) Error() string {
	ids := make([]string, len(e.ShotIDs))
	for i, id := range e.ShotIDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("story %s: missing clips for shot(s) %s", e.StoryID, strings.Join(ids, ", "))
}

func (e *MissingShotsError) Unwrap() error { return services.ErrMissingAsset }

// UnreadableAssetError reports a file that exists but cannot be decoded,
// typically a corrupt or partially written generator output. Fatal for the
// enclosing story.
type UnreadableAssetError struct {
	StoryID string
	Path    string
	Err     error
}

func (e *UnreadableAssetError) Error() string {
	return fmt.Sprintf("story %s: unreadable asset %s: %v", e.StoryID, e.Path, e.Err)
}

func (e *UnreadableAssetError) Unwrap() []error {
	return []error{services.ErrUnreadableAsset, e.Err}
}

// BackgroundMissingError reports an absent background track. Silence is not
// a valid substitute unless the configuration opts into it.
type BackgroundMissingError struct {
	Path string
}

func (e *BackgroundMissingError) Error() string {
	return fmt.Sprintf("background track missing at %s (set audio.allow_silent to assemble without it)", e.Path)
}

func (e *BackgroundMissingError) Unwrap() error { return services.ErrMissingAsset }
