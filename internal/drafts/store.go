// Package drafts persists the wizard's in-progress answers, one draft per owner and topic.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/design-coach/internal/topics"
	"github.com/jonathan/design-coach/internal/types"
)

// ErrInvalidKey is returned for keys with a blank owner or a malformed topic slug.
var ErrInvalidKey = errors.New("invalid draft key")

// Key identifies a draft: the session that owns it and the topic slug.
type Key struct {
	Owner string
	Topic string
}

// Validate checks that the owner is set and the topic is a well-formed slug.
func (k Key) Validate() error {
	if strings.TrimSpace(k.Owner) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidKey)
	}
	if !topics.ValidSlug(k.Topic) {
		return fmt.Errorf("%w: topic %q is not a slug", ErrInvalidKey, k.Topic)
	}
	return nil
}

func (k Key) String() string {
	return k.Owner + "/" + k.Topic
}

// Store persists drafts. Load never returns nil: a missing draft is an empty one.
type Store interface {
	Load(ctx context.Context, key Key) (*types.Draft, error)
	// Save replaces the stored draft. Documents that fail the draft schema are rejected
	// with a *schemas.ValidationError.
	Save(ctx context.Context, key Key, draft *types.Draft) error
	Clear(ctx context.Context, key Key) error
	Close() error
}

// Clock returns the time stamped on saved drafts.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
