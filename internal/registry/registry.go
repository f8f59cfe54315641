package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edencehealth/BRIDGE-Node/internal/store"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a site is not found.
var ErrNotFound = errors.New("site not found")

// ErrDuplicate is returned when a site with the same name already exists.
var ErrDuplicate = errors.New("duplicate site name")

// Registry manages site registrations.
type Registry struct {
	db  *store.DB
	log *zap.Logger
}

// New creates a new Registry.
func New(db *store.DB, log *zap.Logger) *Registry {
	return &Registry{db: db, log: log}
}

// RegisterSite records a new site and returns its assigned identity.
// createdBy identifies the OIDC client the registration was made with.
func (r *Registry) RegisterSite(ctx context.Context, req *RegisterSiteRequest, createdBy string) (*Site, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sites (site_name, public_key, created_at, created_by)
		VALUES (?, ?, ?, ?)
	`, req.SiteName, req.PublicKey, now.Unix(), createdBy)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, req.SiteName)
		}
		return nil, fmt.Errorf("insert site: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("site id: %w", err)
	}

	r.log.Info("site registered",
		zap.Int64("id", id),
		zap.String("site_name", req.SiteName),
		zap.String("created_by", createdBy),
	)

	return r.GetSite(ctx, id)
}

// GetSite returns a site by ID.
func (r *Registry) GetSite(ctx context.Context, id int64) (*Site, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, site_name, public_key, created_at, created_by
		FROM sites WHERE id = ?
	`, id)

	var (
		s         Site
		createdAt int64
	)
	if err := row.Scan(&s.ID, &s.SiteName, &s.PublicKey, &createdAt, &s.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get site: %w", err)
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &s, nil
}

// ListSites returns all registered sites, newest first.
func (r *Registry) ListSites(ctx context.Context) ([]*Site, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_name, public_key, created_at, created_by
		FROM sites ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sites []*Site
	for rows.Next() {
		var (
			s         Site
			createdAt int64
		)
		if err := rows.Scan(&s.ID, &s.SiteName, &s.PublicKey, &createdAt, &s.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		sites = append(sites, &s)
	}
	return sites, rows.Err()
}
