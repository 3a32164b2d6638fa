package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"botforge/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

const postColumns = `id, title, slug, excerpt, content, cover_url, category,
	read_time, views, published_at, created_by, created_at, updated_at`

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.CoverURL, &p.Category,
		&p.ReadTime, &p.Views, &p.PublishedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// ListPosts returns all posts ordered by publish date descending
func (q *Queries) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT "+postColumns+" FROM posts ORDER BY published_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	return scanPost(q.Pool.QueryRow(ctx,
		"SELECT "+postColumns+" FROM posts WHERE slug = $1", slug))
}

type CreatePostParams struct {
	ID          string
	Title       string
	Slug        string
	Excerpt     string
	Content     string
	CoverURL    string
	Category    string
	ReadTime    int
	PublishedAt *time.Time
	CreatedBy   *string
}

func (q *Queries) CreatePost(ctx context.Context, p CreatePostParams) (model.Post, error) {
	return scanPost(q.Pool.QueryRow(ctx,
		`INSERT INTO posts (id, title, slug, excerpt, content, cover_url, category,
			read_time, published_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), $10)
		RETURNING `+postColumns,
		p.ID, p.Title, p.Slug, p.Excerpt, p.Content, p.CoverURL, p.Category,
		p.ReadTime, p.PublishedAt, p.CreatedBy,
	))
}

type UpdatePostParams struct {
	Title    *string
	Excerpt  *string
	Content  *string
	CoverURL *string
	Category *string
	ReadTime *int
}

func (q *Queries) UpdatePost(ctx context.Context, id string, p UpdatePostParams) (model.Post, error) {
	return scanPost(q.Pool.QueryRow(ctx,
		`UPDATE posts SET
			title = COALESCE($2, title),
			excerpt = COALESCE($3, excerpt),
			content = COALESCE($4, content),
			cover_url = COALESCE($5, cover_url),
			category = COALESCE($6, category),
			read_time = COALESCE($7, read_time),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+postColumns,
		id, p.Title, p.Excerpt, p.Content, p.CoverURL, p.Category, p.ReadTime,
	))
}

func (q *Queries) DeletePost(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IncrementPostViews bumps the view counter for a slug atomically
func (q *Queries) IncrementPostViews(ctx context.Context, slug string) error {
	result, err := q.Pool.Exec(ctx,
		"UPDATE posts SET views = views + 1 WHERE slug = $1", slug)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) TopPostsByViews(ctx context.Context, limit int) ([]model.Post, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT "+postColumns+" FROM posts ORDER BY views DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPostViews returns the post count and the sum of all post view counters
func (q *Queries) CountPostViews(ctx context.Context) (count int64, views int64, err error) {
	err = q.Pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(views), 0) FROM posts").Scan(&count, &views)
	return count, views, err
}

const caseColumns = `id, title, slug, excerpt, hero_image, owner_name, owner_photo,
	metrics, content_md, views, published_at, created_at`

func scanCase(row pgx.Row) (model.Case, error) {
	var c model.Case
	var metrics []byte
	err := row.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Excerpt, &c.HeroImage, &c.OwnerName, &c.OwnerPhoto,
		&metrics, &c.ContentMD, &c.Views, &c.PublishedAt, &c.CreatedAt,
	)
	if err != nil {
		return c, err
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &c.Metrics); err != nil {
			return c, fmt.Errorf("failed to decode metrics: %w", err)
		}
	}
	if c.Metrics == nil {
		c.Metrics = []model.CaseMetric{}
	}
	return c, nil
}

func (q *Queries) ListCases(ctx context.Context) ([]model.Case, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT "+caseColumns+" FROM cases ORDER BY published_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cases := make([]model.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (q *Queries) GetCaseBySlug(ctx context.Context, slug string) (model.Case, error) {
	return scanCase(q.Pool.QueryRow(ctx,
		"SELECT "+caseColumns+" FROM cases WHERE slug = $1", slug))
}

type CreateCaseParams struct {
	ID          string
	Title       string
	Slug        string
	Excerpt     string
	HeroImage   string
	OwnerName   string
	OwnerPhoto  string
	Metrics     []model.CaseMetric
	ContentMD   string
	PublishedAt *time.Time
}

func (q *Queries) CreateCase(ctx context.Context, c CreateCaseParams) (model.Case, error) {
	metrics, err := json.Marshal(orEmptyMetrics(c.Metrics))
	if err != nil {
		return model.Case{}, fmt.Errorf("failed to encode metrics: %w", err)
	}
	return scanCase(q.Pool.QueryRow(ctx,
		`INSERT INTO cases (id, title, slug, excerpt, hero_image, owner_name, owner_photo,
			metrics, content_md, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		RETURNING `+caseColumns,
		c.ID, c.Title, c.Slug, c.Excerpt, c.HeroImage, c.OwnerName, c.OwnerPhoto,
		metrics, c.ContentMD, c.PublishedAt,
	))
}

type UpdateCaseParams struct {
	Title      *string
	Excerpt    *string
	HeroImage  *string
	OwnerName  *string
	OwnerPhoto *string
	Metrics    []model.CaseMetric
	ContentMD  *string
}

func (q *Queries) UpdateCase(ctx context.Context, id string, c UpdateCaseParams) (model.Case, error) {
	var metrics []byte
	if c.Metrics != nil {
		var err error
		metrics, err = json.Marshal(c.Metrics)
		if err != nil {
			return model.Case{}, fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return scanCase(q.Pool.QueryRow(ctx,
		`UPDATE cases SET
			title = COALESCE($2, title),
			excerpt = COALESCE($3, excerpt),
			hero_image = COALESCE($4, hero_image),
			owner_name = COALESCE($5, owner_name),
			owner_photo = COALESCE($6, owner_photo),
			metrics = COALESCE($7, metrics),
			content_md = COALESCE($8, content_md)
		WHERE id = $1
		RETURNING `+caseColumns,
		id, c.Title, c.Excerpt, c.HeroImage, c.OwnerName, c.OwnerPhoto, metrics, c.ContentMD,
	))
}

func (q *Queries) DeleteCase(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx, "DELETE FROM cases WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) IncrementCaseViews(ctx context.Context, slug string) error {
	result, err := q.Pool.Exec(ctx,
		"UPDATE cases SET views = views + 1 WHERE slug = $1", slug)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) TopCasesByViews(ctx context.Context, limit int) ([]model.Case, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT "+caseColumns+" FROM cases ORDER BY views DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cases := make([]model.Case, 0, limit)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (q *Queries) CountCaseViews(ctx context.Context) (count int64, views int64, err error) {
	err = q.Pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(views), 0) FROM cases").Scan(&count, &views)
	return count, views, err
}

func orEmptyMetrics(m []model.CaseMetric) []model.CaseMetric {
	if m == nil {
		return []model.CaseMetric{}
	}
	return m
}

// API key queries. The token column is only ever read by
// FindActiveKeyByToken; listings return the non-secret projection.

func (q *Queries) CreateAPIKey(ctx context.Context, id, label, token string) (model.ApiKey, error) {
	var k model.ApiKey
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO api_keys (id, label, token, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, label, created_at, active`,
		id, label, token,
	).Scan(&k.ID, &k.Label, &k.CreatedAt, &k.Active)
	return k, err
}

func (q *Queries) ListAPIKeys(ctx context.Context) ([]model.ApiKey, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT id, label, created_at, active FROM api_keys ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]model.ApiKey, 0)
	for rows.Next() {
		var k model.ApiKey
		if err := rows.Scan(&k.ID, &k.Label, &k.CreatedAt, &k.Active); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (q *Queries) FindActiveKeyByToken(ctx context.Context, token string) (model.ApiKey, error) {
	var k model.ApiKey
	err := q.Pool.QueryRow(ctx,
		"SELECT id, label, created_at, active FROM api_keys WHERE token = $1 AND active = TRUE",
		token,
	).Scan(&k.ID, &k.Label, &k.CreatedAt, &k.Active)
	return k, err
}

func (q *Queries) SetAPIKeyActive(ctx context.Context, id string, active bool) error {
	result, err := q.Pool.Exec(ctx,
		"UPDATE api_keys SET active = $2 WHERE id = $1", id, active)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx, "DELETE FROM api_keys WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const agentColumns = `id, user_id, company_name, bot_name, tone, no_answer_phrase, goal,
	dialog_flow, ig_url, website_url, docs_paths, status, whatsapp_qr, metadata,
	created_at, connected_at`

func scanAgent(row pgx.Row) (model.Agent, error) {
	var a model.Agent
	var dialogFlow, metadata []byte
	err := row.Scan(
		&a.ID, &a.UserID, &a.CompanyName, &a.BotName, &a.Tone, &a.NoAnswerPhrase, &a.Goal,
		&dialogFlow, &a.IGURL, &a.WebsiteURL, &a.DocsPaths, &a.Status, &a.WhatsAppQR, &metadata,
		&a.CreatedAt, &a.ConnectedAt,
	)
	if err != nil {
		return a, err
	}
	if len(dialogFlow) > 0 {
		if err := json.Unmarshal(dialogFlow, &a.DialogFlow); err != nil {
			return a, fmt.Errorf("failed to decode dialog flow: %w", err)
		}
	}
	if len(metadata) > 0 {
		a.Metadata = &model.AgentMetadata{}
		if err := json.Unmarshal(metadata, a.Metadata); err != nil {
			return a, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if a.DocsPaths == nil {
		a.DocsPaths = []string{}
	}
	return a, nil
}

type CreateAgentParams struct {
	ID             string
	UserID         *string
	CompanyName    string
	BotName        string
	Tone           string
	NoAnswerPhrase string
	Goal           string
	DialogFlow     []model.DialogStep
	IGURL          string
	WebsiteURL     string
	Status         model.AgentStatus
	Metadata       *model.AgentMetadata
}

func (q *Queries) CreateAgent(ctx context.Context, a CreateAgentParams) (model.Agent, error) {
	dialogFlow, err := json.Marshal(a.DialogFlow)
	if err != nil {
		return model.Agent{}, fmt.Errorf("failed to encode dialog flow: %w", err)
	}
	var metadata []byte
	if a.Metadata != nil {
		metadata, err = json.Marshal(a.Metadata)
		if err != nil {
			return model.Agent{}, fmt.Errorf("failed to encode metadata: %w", err)
		}
	}
	return scanAgent(q.Pool.QueryRow(ctx,
		`INSERT INTO agents (id, user_id, company_name, bot_name, tone, no_answer_phrase,
			goal, dialog_flow, ig_url, website_url, docs_paths, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '{}', $11, $12)
		RETURNING `+agentColumns,
		a.ID, a.UserID, a.CompanyName, a.BotName, a.Tone, a.NoAnswerPhrase,
		a.Goal, dialogFlow, a.IGURL, a.WebsiteURL, a.Status, metadata,
	))
}

func (q *Queries) GetAgentByID(ctx context.Context, id string) (model.Agent, error) {
	return scanAgent(q.Pool.QueryRow(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE id = $1", id))
}

func (q *Queries) UpdateAgentDocsPaths(ctx context.Context, id string, paths []string) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE agents SET docs_paths = $2 WHERE id = $1", id, paths)
	return err
}

func (q *Queries) UpdateAgentStatus(ctx context.Context, id string, status model.AgentStatus) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE agents SET status = $2 WHERE id = $1", id, status)
	return err
}

// SetAgentReady marks an agent ready and attaches the QR payload and
// the chat demo token inside the metadata blob.
func (q *Queries) SetAgentReady(ctx context.Context, id, qr, chatDemoToken string) error {
	_, err := q.Pool.Exec(ctx,
		`UPDATE agents SET status = $2, whatsapp_qr = $3,
			metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('chatDemoToken', $4::text)
		WHERE id = $1`,
		id, model.AgentStatusReady, qr, chatDemoToken)
	return err
}

// MarkAgentTimedOut moves an agent that never became ready into the
// terminal error state. Agents already ready or connected are left alone.
func (q *Queries) MarkAgentTimedOut(ctx context.Context, id string) (bool, error) {
	result, err := q.Pool.Exec(ctx,
		"UPDATE agents SET status = $2 WHERE id = $1 AND status IN ($3, $4)",
		id, model.AgentStatusError, model.AgentStatusConfiguring, model.AgentStatusTraining)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// User represents a user row. PasswordHash and the server-assigned role
// never leave the db/auth layers.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         *string
	Meta         map[string]interface{}
	CreatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, id, email, passwordHash string, meta map[string]interface{}) (User, error) {
	var u User
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, meta)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password_hash, role, meta, created_at`,
		id, email, passwordHash, meta,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Meta, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.Pool.QueryRow(ctx,
		"SELECT id, email, password_hash, role, meta, created_at FROM users WHERE email = $1",
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Meta, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := q.Pool.QueryRow(ctx,
		"SELECT id, email, password_hash, role, meta, created_at FROM users WHERE id = $1",
		id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Meta, &u.CreatedAt)
	return u, err
}

// UpdateUserMeta merges the given fields into the user-editable metadata
func (q *Queries) UpdateUserMeta(ctx context.Context, id string, meta map[string]interface{}) error {
	patch, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}
	result, err := q.Pool.Exec(ctx,
		"UPDATE users SET meta = COALESCE(meta, '{}'::jsonb) || $2::jsonb WHERE id = $1",
		id, patch)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) SetUserResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE users SET reset_token = $2, reset_expires_at = $3 WHERE id = $1",
		id, token, expiresAt)
	return err
}
