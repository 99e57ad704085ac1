package cart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"labcommerce/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// lineRecord is the on-disk form of a cart line. Item fields are a display
// snapshot; the server re-prices every line at checkout.
type lineRecord struct {
	Profile     string `gorm:"primaryKey"`
	ItemID      string `gorm:"primaryKey"`
	Position    int    `gorm:"not null"`
	Code        string
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Quantity    int `gorm:"not null"`
	UpdatedAt   time.Time
}

func (lineRecord) TableName() string { return "cart_lines" }

// Open opens (creating if needed) the sqlite cart file at path. Use ":memory:" in tests.
func Open(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cart dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open cart store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("cart store handle: %w", err)
	}
	// one connection: sqlite has a single writer and ":memory:" is per connection
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&lineRecord{}); err != nil {
		return nil, fmt.Errorf("migrate cart store: %w", err)
	}
	return db, nil
}

type sqliteRepo struct {
	db      *gorm.DB
	profile string
}

func NewSQLite(db *gorm.DB, profile string) Repository {
	return &sqliteRepo{db: db, profile: profile}
}

func (r *sqliteRepo) Load(ctx context.Context) ([]domain.CartLine, error) {
	var recs []lineRecord
	if err := r.db.WithContext(ctx).Where("profile = ?", r.profile).Order("position").Find(&recs).Error; err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(recs))
	for _, rec := range recs {
		if rec.Quantity <= 0 {
			continue
		}
		lines = append(lines, domain.CartLine{
			Item: domain.CatalogItem{
				ID:          rec.ItemID,
				Code:        rec.Code,
				Name:        rec.Name,
				Description: rec.Description,
				Category:    rec.Category,
				Price:       domain.CentsToDecimal(rec.PriceCents),
			},
			Quantity: rec.Quantity,
		})
	}
	return lines, nil
}

func (r *sqliteRepo) Save(ctx context.Context, lines []domain.CartLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile = ?", r.profile).Delete(&lineRecord{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		recs := make([]lineRecord, 0, len(lines))
		for i, l := range lines {
			recs = append(recs, lineRecord{
				Profile:     r.profile,
				ItemID:      l.Item.ID,
				Position:    i,
				Code:        l.Item.Code,
				Name:        l.Item.Name,
				Description: l.Item.Description,
				Category:    l.Item.Category,
				PriceCents:  domain.DecimalToCents(l.Item.Price),
				Quantity:    l.Quantity,
			})
		}
		return tx.Create(&recs).Error
	})
}
