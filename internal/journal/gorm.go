package journal

import (
	"context"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"tickpipe/pkg/conn"
)

// GormStore writes order records through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db and migrates the order table.
func NewGormStore(db *gorm.DB, migrate bool) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("journal: nil db")
	}
	if migrate {
		if err := db.AutoMigrate(&OrderRecord{}); err != nil {
			return nil, errors.Wrap(err, "migrate order records")
		}
	}
	return &GormStore{db: db}, nil
}

// Open connects to Postgres and migrates the schema.
func Open(opt conn.Option) (*GormStore, *conn.Client, error) {
	client, err := conn.New(opt)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewGormStore(client.DB(), true)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, client, nil
}

// Insert implements Store.
func (s *GormStore) Insert(ctx context.Context, records []OrderRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(records, len(records)).Error
}
