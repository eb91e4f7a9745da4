// Package sqlite stores records in a SQLite database through gorm.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlitedriver "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supergoodsystems/wiretap/pkg/record"
	"github.com/supergoodsystems/wiretap/pkg/store"
)

type recordRow struct {
	Seq           uint   `gorm:"primaryKey;autoIncrement"`
	ID            string `gorm:"uniqueIndex;size:64"`
	Method        string `gorm:"index;size:16"`
	ClientLibrary string `gorm:"size:32"`
	StatusCode    int
	Checked       bool `gorm:"index"`
	RequestTime   time.Time
	Payload       []byte
}

func (recordRow) TableName() string { return "wiretap_records" }

type settingsRow struct {
	ID            uint `gorm:"primaryKey"`
	DebugMode     bool
	ShowOnRelease bool
}

func (settingsRow) TableName() string { return "wiretap_settings" }

// Store is a store.History backed by SQLite.
type Store struct {
	db         *gorm.DB
	maxRecords int
}

// Options configure a Store.
type Options struct {
	// Logger receives SQL logging; nil silences it.
	Logger *zerolog.Logger
	// MaxRecords deletes all but the newest MaxRecords rows when positive.
	MaxRecords int
}

var _ store.History = (*Store)(nil)

// Open opens (creating if needed) the database at dsn and migrates it.
func Open(dsn string, o Options) (*Store, error) {
	db, err := gorm.Open(sqlitedriver.Open(dsn), &gorm.Config{Logger: newGormLogger(o.Logger)})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// single writer, sqlite serializes anyway
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&recordRow{}, &settingsRow{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db, maxRecords: o.MaxRecords}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetSettings(ctx context.Context) (store.Settings, error) {
	var row settingsRow
	err := s.db.WithContext(ctx).First(&row, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Settings{}, nil
	}
	if err != nil {
		return store.Settings{}, err
	}
	return store.Settings{DebugMode: row.DebugMode, ShowOnRelease: row.ShowOnRelease}, nil
}

func (s *Store) PutSettings(ctx context.Context, st store.Settings) error {
	row := settingsRow{ID: 1, DebugMode: st.DebugMode, ShowOnRelease: st.ShowOnRelease}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) AddRecord(ctx context.Context, r *record.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("sqlite: encode record %s: %w", r.ID, err)
	}
	row := recordRow{
		ID:            r.ID,
		Method:        r.Method,
		ClientLibrary: r.ClientLibrary,
		StatusCode:    r.StatusCode,
		Checked:       r.Checked,
		RequestTime:   r.RequestTime,
		Payload:       payload,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if s.maxRecords <= 0 || int(row.Seq) <= s.maxRecords {
			return nil
		}
		return tx.Where("seq <= ?", int(row.Seq)-s.maxRecords).Delete(&recordRow{}).Error
	})
}

func (s *Store) ListRecords(ctx context.Context, f store.Filter) ([]record.Record, error) {
	q := s.db.WithContext(ctx).Model(&recordRow{})
	if f.Method != "" {
		q = q.Where("method = ?", f.Method)
	}
	if f.ClientLibrary != "" {
		q = q.Where("client_library = ?", f.ClientLibrary)
	}
	if f.UncheckedOnly {
		q = q.Where("checked = ?", false)
	}

	var rows []recordRow
	if f.Limit > 0 {
		if err := q.Order("seq desc").Limit(f.Limit).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	} else if err := q.Order("seq asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		var r record.Record
		if err := json.Unmarshal(row.Payload, &r); err != nil {
			return nil, fmt.Errorf("sqlite: decode record %s: %w", row.ID, err)
		}
		r.Checked = row.Checked
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) SetChecked(ctx context.Context, id string, checked bool) error {
	res := s.db.WithContext(ctx).Model(&recordRow{}).Where("id = ?", id).Update("checked", checked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&recordRow{}).Error
}
