package repo

import (
	"NewsBlog/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// InitDB открывает БД по DSN, накатывает миграции и создаёт служебного
// пользователя. postgres:// и postgresql:// открываются драйвером postgres,
// всё остальное считается путём/DSN SQLite (modernc.org/sqlite).
func InitDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// нарушение уникальности приходит как gorm.ErrDuplicatedKey
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgresDSN(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: sqliteDSN(dsn)}
		db, err = gorm.Open(dial, cfg)
		if err == nil {
			// SQLite: один писатель; все запросы транзакции идут через tx
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				return nil, dbErr
			}
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.News{}, &model.Comment{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	if err := EnsureSentinel(context.Background(), db); err != nil {
		return nil, fmt.Errorf("bootstrap sentinel user: %w", err)
	}
	return db, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// sqliteDSN добавляет прагмы: внешние ключи и ожидание блокировки.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "news.db"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// EnsureSentinel создаёт пользователя с id = 1 ("deleted user") без пароля,
// если его ещё нет.
func EnsureSentinel(ctx context.Context, db *gorm.DB) error {
	// Find, а не First: отсутствие строки на свежей базе не ошибка
	var found []model.User
	res := db.WithContext(ctx).Limit(1).Find(&found, model.SentinelUserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	sentinel := &model.User{
		ID:       model.SentinelUserID,
		Nickname: model.SentinelNickname,
		Image:    model.SentinelUserImage,
	}
	if err := db.WithContext(ctx).Create(sentinel).Error; err != nil {
		return err
	}
	// явная вставка id не двигает последовательность в postgres
	if db.Dialector.Name() == "postgres" {
		return db.WithContext(ctx).Exec(
			`SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT MAX(id) FROM users), 1))`,
		).Error
	}
	return nil
}

// Store объединяет репозитории, работающие поверх одного *gorm.DB.
// Внутри WithTx все репозитории привязаны к транзакции.
type Store struct {
	db *gorm.DB

	Users    UserRepository
	News     NewsRepository
	Comments CommentRepository
}

// NewStore создаёт набор репозиториев.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Users:    NewUserRepository(db),
		News:     NewNewsRepository(db),
		Comments: NewCommentRepository(db),
	}
}

// translateErr приводит нарушение уникальности к gorm.ErrDuplicatedKey.
// Переводчик ошибок gorm sqlite понимает только коды mattn/go-sqlite3,
// у modernc.org/sqlite остаётся текст ошибки.
func translateErr(err error) error {
	if err == nil || errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", gorm.ErrDuplicatedKey, err)
	}
	return err
}

// WithTx выполняет fn в одной транзакции: commit при nil, rollback при ошибке или панике.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewStore(tx))
	})
}
