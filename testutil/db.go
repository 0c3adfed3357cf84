// Package testutil opens throwaway databases and seeds fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/qaforum/config"
	"github.com/cppla/qaforum/models"
)

var dbSeq int64

// NewDB returns a migrated in-memory SQLite database private to the test. It also
// installs the test configuration.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	UseConfig(t)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: transactions must never be interleaved with outside queries.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// UseConfig installs a test configuration with a fixed JWT secret.
func UseConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.AppConfig{
		JWTSecret: "test-secret",
		GinMode:   "test",
		DBDriver:  "sqlite",
	}
	config.Set(cfg)
	return config.Get()
}

// CreateUser inserts an active user with the given extra roles.
func CreateUser(t *testing.T, db *gorm.DB, username string, roles ...models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Roles:    append(models.RoleSet{models.RoleUser}, roles...).Normalize(),
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SetReputation overwrites a user's reputation without touching level.
func SetReputation(t *testing.T, db *gorm.DB, userID uint, rep int) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).Update("reputation", rep).Error)
}

// CreatePost inserts a visible post owned by author.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, title string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author.ID, Title: title, Content: "body of " + title}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment inserts a visible comment on post.
func CreateComment(t *testing.T, db *gorm.DB, post *models.Post, author *models.User, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: post.ID, UserID: author.ID, Content: content}
	require.NoError(t, db.Create(c).Error)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error)
	return c
}

// CreateReport inserts a PENDING report.
func CreateReport(t *testing.T, db *gorm.DB, reporter *models.User, targetType models.TargetType, targetID uint, reason string) *models.Report {
	t.Helper()
	r := &models.Report{
		ReporterID: reporter.ID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Status:     models.ReportPending,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

// Reload fetches a fresh copy of dest's row by primary key.
func Reload[T any](t *testing.T, db *gorm.DB, id uint) *T {
	t.Helper()
	var out T
	require.NoError(t, db.First(&out, id).Error)
	return &out
}
