package store

import (
	"context"
	"errors"
	"time"

	"github.com/guidevault/guidevault/internal/models"
)

// ErrNotFound is returned when a lookup by id or natural key matches nothing.
var ErrNotFound = errors.New("not found")

// Store defines persistence for channels, categories, programs, and archival
// records. All writes are upserts by natural key so the ingest pipeline can
// be re-run against identical feed content without duplication.
type Store interface {
	// UpsertChannel inserts or refreshes a channel keyed by its feed URL;
	// returns the channel id. Operator-managed fields (playback URL,
	// archived flag, settings) are preserved on refresh.
	UpsertChannel(ctx context.Context, ch *models.Channel) (int64, error)
	// GetChannelByID returns a single channel or ErrNotFound.
	GetChannelByID(ctx context.Context, channelID int64) (*models.Channel, error)
	// ListChannels returns channels matching the filter, ordered by title.
	ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error)
	// SetChannelArchived flips a channel's archived flag.
	SetChannelArchived(ctx context.Context, channelID int64, archived bool) error
	// UpdateChannelPlayback sets the playback base URL and packaging
	// settings for a channel.
	UpdateChannelPlayback(ctx context.Context, channelID int64, url string, settings models.ChannelSettings) error

	// GetOrCreateCategory returns the id for a category title, creating it
	// if unseen. Existing categories are never updated.
	GetOrCreateCategory(ctx context.Context, title string) (int64, error)
	// ListCategories returns all categories ordered by title.
	ListCategories(ctx context.Context) ([]models.Category, error)

	// UpsertPrograms writes a feed's programs in one batch, keyed by
	// (channel_id, start_at).
	UpsertPrograms(ctx context.Context, programs []*models.Program) error
	// ListPrograms returns programs inside the filter's UTC window with
	// category titles and archival records joined, ordered by start time.
	ListPrograms(ctx context.Context, filter ProgramFilter) ([]models.Program, error)
	// GetProgramByID returns a single program (with joins) or ErrNotFound.
	GetProgramByID(ctx context.Context, programID int64) (*models.Program, error)

	// GetArchivedProgram returns the archival record for a program, or
	// ErrNotFound when the program was never archived.
	GetArchivedProgram(ctx context.Context, programID int64) (*models.ArchivedProgram, error)
	// UpsertArchivedProgram inserts or updates the at-most-one archival
	// record per program; returns its id.
	UpsertArchivedProgram(ctx context.Context, ap *models.ArchivedProgram) (int64, error)
	// ListArchivedPrograms returns archival records, optionally only those
	// with an active status.
	ListArchivedPrograms(ctx context.Context, activeOnly bool) ([]models.ArchivedProgram, error)
}

// ChannelFilter holds optional filters for listing channels.
type ChannelFilter struct {
	Provider string // "" = all providers
	Archived *bool  // nil = ignore archived flag
	IDs      []int64
}

// ProgramFilter bounds a program query to one UTC window, optionally
// narrowed by channel, provider, or categories. From/To are inclusive, as
// produced by the guide window resolver.
type ProgramFilter struct {
	From        time.Time
	To          time.Time
	ChannelID   *int64
	Provider    string
	CategoryIDs []int64
}
