package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"ChartSense/internal/domain/models"
	"ChartSense/internal/domain/repository"
	"ChartSense/pkg/cache"
	pkghttp "ChartSense/pkg/http"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheTierDirectory keeps tiers in a cache.Service under prefix+userID.
// Backed by MemoryCache it is the static directory; backed by RedisCache it
// is shared across instances. A missing key means free.
type CacheTierDirectory struct {
	cache  cache.Service
	prefix string
}

// NewCacheTierDirectory creates a directory over c.
func NewCacheTierDirectory(c cache.Service, prefix string) *CacheTierDirectory {
	return &CacheTierDirectory{cache: c, prefix: prefix}
}

// NewStaticTierDirectory creates an in-memory directory seeded with
// userID -> tier pairs. It is the system of record for tiers, so entries
// are never evicted.
func NewStaticTierDirectory(seed map[string]string) (*CacheTierDirectory, error) {
	d := NewCacheTierDirectory(cache.NewMemoryCache(cache.WithMemoryMaxSize(0)), "tier:")
	for userID, tier := range seed {
		if err := d.SetTier(context.Background(), userID, models.ParseTier(tier)); err != nil {
			return nil, err
		}
	}
	return d, nil
}

var (
	_ repository.TierDirectory = (*CacheTierDirectory)(nil)
	_ repository.TierWriter    = (*CacheTierDirectory)(nil)
)

func (d *CacheTierDirectory) Lookup(ctx context.Context, userID string) (models.Tier, error) {
	var raw string
	err := d.cache.Get(ctx, cache.GenerateKey(d.prefix, userID), &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.TierFree, nil
	}
	if err != nil {
		return models.TierFree, fmt.Errorf("tier lookup: %w", err)
	}
	return models.ParseTier(raw), nil
}

func (d *CacheTierDirectory) SetTier(ctx context.Context, userID string, tier models.Tier) error {
	if err := d.cache.Set(ctx, cache.GenerateKey(d.prefix, userID), string(tier), 0); err != nil {
		return fmt.Errorf("tier set: %w", err)
	}
	return nil
}

// Close releases the underlying cache.
func (d *CacheTierDirectory) Close() error {
	return d.cache.Close()
}

// Profile is a row of the profiles table owned by the subscription backend.
type Profile struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Tier      string    `gorm:"column:tier;not null;default:free"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PostgresTierDirectory reads tiers from the profiles table.
type PostgresTierDirectory struct {
	db    *gorm.DB
	table string
}

// NewPostgresTierDirectory creates a directory over table (default "profiles").
func NewPostgresTierDirectory(db *gorm.DB, table string) *PostgresTierDirectory {
	if table == "" {
		table = "profiles"
	}
	return &PostgresTierDirectory{db: db, table: table}
}

var (
	_ repository.TierDirectory = (*PostgresTierDirectory)(nil)
	_ repository.TierWriter    = (*PostgresTierDirectory)(nil)
)

// Migrate creates the profiles table when it does not exist.
func (d *PostgresTierDirectory) Migrate(ctx context.Context) error {
	return d.db.WithContext(ctx).Table(d.table).AutoMigrate(&Profile{})
}

func (d *PostgresTierDirectory) Lookup(ctx context.Context, userID string) (models.Tier, error) {
	var p Profile
	err := d.db.WithContext(ctx).Table(d.table).
		Select("user_id", "tier").
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TierFree, nil
	}
	if err != nil {
		return models.TierFree, fmt.Errorf("tier lookup: %w", err)
	}
	return models.ParseTier(p.Tier), nil
}

func (d *PostgresTierDirectory) SetTier(ctx context.Context, userID string, tier models.Tier) error {
	p := Profile{UserID: userID, Tier: string(tier), UpdatedAt: time.Now().UTC()}
	err := d.db.WithContext(ctx).Table(d.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("tier set: %w", err)
	}
	return nil
}

// HTTPTierDirectory asks the subscription service over HTTP:
// GET {base}/subscriptions/check?user_id=... -> {"user_id":..., "tier":...}.
type HTTPTierDirectory struct {
	client *pkghttp.Client
}

// NewHTTPTierDirectory creates a directory using client, whose base URL
// points at the subscription service.
func NewHTTPTierDirectory(client *pkghttp.Client) *HTTPTierDirectory {
	return &HTTPTierDirectory{client: client}
}

var _ repository.TierDirectory = (*HTTPTierDirectory)(nil)

func (d *HTTPTierDirectory) Lookup(ctx context.Context, userID string) (models.Tier, error) {
	var resp models.TierCheckResponse
	err := d.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         "/subscriptions/check",
		QueryParams: url.Values{"user_id": {userID}},
	}, &resp)
	if errors.Is(err, pkghttp.ErrNotFound) {
		return models.TierFree, nil
	}
	if err != nil {
		return models.TierFree, fmt.Errorf("tier lookup: %w", err)
	}
	return models.ParseTier(string(resp.Tier)), nil
}
