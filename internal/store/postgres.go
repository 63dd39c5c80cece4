package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guidevault/guidevault/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// UpsertChannel inserts or refreshes a channel keyed by xml_url; returns id.
// Only feed-derived fields are overwritten on conflict so operator edits
// (playback url, archived flag, settings) survive re-ingest.
func (p *Postgres) UpsertChannel(ctx context.Context, ch *models.Channel) (int64, error) {
	settings, err := json.Marshal(ch.Settings)
	if err != nil {
		return 0, fmt.Errorf("marshal settings: %w", err)
	}
	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO channels (xml_url, provider, title, logo, url, archived, settings)
		 VALUES ($1, $2, $3, $4, $5, false, $6)
		 ON CONFLICT (xml_url) DO UPDATE SET
		   provider = EXCLUDED.provider, title = EXCLUDED.title, logo = EXCLUDED.logo
		 RETURNING id`,
		ch.XMLURL, ch.Provider, ch.Title, ch.Logo, ch.URL, settings,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("UpsertChannel: %w", err)
	}
	return id, nil
}

// GetChannelByID returns a single channel by id.
func (p *Postgres) GetChannelByID(ctx context.Context, channelID int64) (*models.Channel, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, xml_url, provider, title, logo, url, archived, settings
		 FROM channels WHERE id = $1`, channelID)
	ch, err := scanChannel(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetChannelByID: %w", err)
	}
	return ch, nil
}

// ListChannels returns channels matching the filter, ordered by title.
func (p *Postgres) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	var conds []string
	var args []any
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		conds = append(conds, fmt.Sprintf("provider = $%d", len(args)))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		conds = append(conds, fmt.Sprintf("archived = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	q := `SELECT id, xml_url, provider, title, logo, url, archived, settings FROM channels`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY title, id"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("ListChannels scan: %w", err)
		}
		out = append(out, *ch)
	}
	return out, rows.Err()
}

// SetChannelArchived flips the archived flag.
func (p *Postgres) SetChannelArchived(ctx context.Context, channelID int64, archived bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET archived = $2 WHERE id = $1`, channelID, archived)
	if err != nil {
		return fmt.Errorf("SetChannelArchived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateChannelPlayback sets the playback base url and packaging settings.
func (p *Postgres) UpdateChannelPlayback(ctx context.Context, channelID int64, url string, settings models.ChannelSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET url = $2, settings = $3 WHERE id = $1`,
		channelID, url, data)
	if err != nil {
		return fmt.Errorf("UpdateChannelPlayback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrCreateCategory returns the category id for a title, creating the row
// the first time the title is seen. Existing rows are never modified.
func (p *Postgres) GetOrCreateCategory(ctx context.Context, title string) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO categories (title) VALUES ($1)
		 ON CONFLICT (title) DO NOTHING
		 RETURNING id`, title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("GetOrCreateCategory insert: %w", err)
	}
	// Conflict path: the title already exists.
	err = p.pool.QueryRow(ctx,
		`SELECT id FROM categories WHERE title = $1`, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("GetOrCreateCategory select: %w", err)
	}
	return id, nil
}

// ListCategories returns all categories ordered by title.
func (p *Postgres) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, title FROM categories ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, fmt.Errorf("ListCategories scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertPrograms writes a feed's programs in one pipelined batch, keyed by
// (channel_id, start_at).
func (p *Postgres) UpsertPrograms(ctx context.Context, programs []*models.Program) error {
	if len(programs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pr := range programs {
		info, err := json.Marshal(pr.Info)
		if err != nil {
			return fmt.Errorf("marshal info: %w", err)
		}
		batch.Queue(
			`INSERT INTO programs (channel_id, category_id, title, length, start_at, end_at, info)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (channel_id, start_at) DO UPDATE SET
			   category_id = EXCLUDED.category_id, title = EXCLUDED.title,
			   length = EXCLUDED.length, end_at = EXCLUDED.end_at, info = EXCLUDED.info`,
			pr.ChannelID, pr.CategoryID, pr.Title, pr.Length, pr.StartAt, pr.EndAt, info)
	}
	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range programs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("UpsertPrograms: %w", err)
		}
	}
	return nil
}

const programSelect = `
	SELECT p.id, p.channel_id, p.category_id, p.title, p.length, p.start_at, p.end_at, p.info,
	       c.title,
	       a.id, a.path, a.status, a.updated_at
	FROM programs p
	JOIN channels ch ON ch.id = p.channel_id
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN archived_programs a ON a.program_id = p.id`

// ListPrograms returns programs whose UTC start time falls inside the
// filter's inclusive window, ordered by start time.
func (p *Postgres) ListPrograms(ctx context.Context, filter ProgramFilter) ([]models.Program, error) {
	args := []any{filter.From, filter.To}
	conds := []string{"p.start_at BETWEEN $1 AND $2"}
	if filter.ChannelID != nil {
		args = append(args, *filter.ChannelID)
		conds = append(conds, fmt.Sprintf("p.channel_id = $%d", len(args)))
	}
	if filter.Provider != "" {
		args = append(args, filter.Provider)
		conds = append(conds, fmt.Sprintf("ch.provider = $%d", len(args)))
	}
	if len(filter.CategoryIDs) > 0 {
		args = append(args, filter.CategoryIDs)
		conds = append(conds, fmt.Sprintf("p.category_id = ANY($%d)", len(args)))
	}
	q := programSelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY p.start_at, p.id"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListPrograms: %w", err)
	}
	defer rows.Close()

	var out []models.Program
	for rows.Next() {
		pr, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("ListPrograms scan: %w", err)
		}
		out = append(out, *pr)
	}
	return out, rows.Err()
}

// GetProgramByID returns a single program with joins.
func (p *Postgres) GetProgramByID(ctx context.Context, programID int64) (*models.Program, error) {
	row := p.pool.QueryRow(ctx, programSelect+" WHERE p.id = $1", programID)
	pr, err := scanProgram(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetProgramByID: %w", err)
	}
	return pr, nil
}

// GetArchivedProgram returns the archival record for a program id.
func (p *Postgres) GetArchivedProgram(ctx context.Context, programID int64) (*models.ArchivedProgram, error) {
	var ap models.ArchivedProgram
	err := p.pool.QueryRow(ctx,
		`SELECT id, program_id, path, status, updated_at
		 FROM archived_programs WHERE program_id = $1`, programID).
		Scan(&ap.ID, &ap.ProgramID, &ap.Path, &ap.Status, &ap.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetArchivedProgram: %w", err)
	}
	return &ap, nil
}

// UpsertArchivedProgram inserts or updates the one archival record per
// program; returns its id.
func (p *Postgres) UpsertArchivedProgram(ctx context.Context, ap *models.ArchivedProgram) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO archived_programs (program_id, path, status, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (program_id) DO UPDATE SET
		   path = EXCLUDED.path, status = EXCLUDED.status, updated_at = NOW()
		 RETURNING id`,
		ap.ProgramID, ap.Path, ap.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("UpsertArchivedProgram: %w", err)
	}
	return id, nil
}

// ListArchivedPrograms returns archival records, newest first.
func (p *Postgres) ListArchivedPrograms(ctx context.Context, activeOnly bool) ([]models.ArchivedProgram, error) {
	q := `SELECT id, program_id, path, status, updated_at FROM archived_programs`
	if activeOnly {
		q += ` WHERE status`
	}
	q += ` ORDER BY updated_at DESC`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListArchivedPrograms: %w", err)
	}
	defer rows.Close()

	var out []models.ArchivedProgram
	for rows.Next() {
		var ap models.ArchivedProgram
		if err := rows.Scan(&ap.ID, &ap.ProgramID, &ap.Path, &ap.Status, &ap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListArchivedPrograms scan: %w", err)
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

// --- row scanning ---

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var ch models.Channel
	var settings []byte
	if err := row.Scan(&ch.ID, &ch.XMLURL, &ch.Provider, &ch.Title, &ch.Logo, &ch.URL, &ch.Archived, &settings); err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &ch.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return &ch, nil
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var pr models.Program
	var info []byte
	var archivedID *int64
	var archivedPath *string
	var archivedStatus *bool
	var archivedUpdated *time.Time
	err := row.Scan(&pr.ID, &pr.ChannelID, &pr.CategoryID, &pr.Title, &pr.Length,
		&pr.StartAt, &pr.EndAt, &info,
		&pr.CategoryTitle,
		&archivedID, &archivedPath, &archivedStatus, &archivedUpdated)
	if err != nil {
		return nil, err
	}
	pr.StartAt = pr.StartAt.UTC()
	pr.EndAt = pr.EndAt.UTC()
	if len(info) > 0 {
		if err := json.Unmarshal(info, &pr.Info); err != nil {
			return nil, fmt.Errorf("unmarshal info: %w", err)
		}
	}
	if archivedID != nil {
		pr.Archived = &models.ArchivedProgram{
			ID:        *archivedID,
			ProgramID: pr.ID,
			Path:      derefString(archivedPath),
			Status:    archivedStatus != nil && *archivedStatus,
			UpdatedAt: archivedUpdated,
		}
	}
	return &pr, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
