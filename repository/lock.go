package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrLockHeld = errors.New("advisory lock is held by another process")

// WithAdvisoryLock runs fn while holding the named MySQL advisory lock. The
// lock lives on a single pinned connection and is released when fn returns.
// An empty name runs fn without locking.
func WithAdvisoryLock(ctx context.Context, db *gorm.DB, name string, fn func() error) error {
	if strings.TrimSpace(name) == "" {
		return fn()
	}

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var ok int
		if err := conn.Raw("SELECT GET_LOCK(?, 0)", name).Scan(&ok).Error; err != nil {
			return err
		}
		if ok != 1 {
			return ErrLockHeld
		}
		defer func() {
			var released int
			conn.Raw("SELECT RELEASE_LOCK(?)", name).Scan(&released)
		}()
		return fn()
	})
}
