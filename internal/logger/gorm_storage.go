package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	appconfig "history-mind-companion/internal/config"
)

const turnDatabaseFile = "turns.db"

// GORMStorage persists turn logs in SQLite through GORM. The modernc driver
// keeps the binary free of cgo.
type GORMStorage struct {
	db  *gorm.DB
	log *logrus.Logger

	stopCleanup context.CancelFunc
	cleanupDone chan struct{}
}

// TurnStats summarises the stored turns.
type TurnStats struct {
	Total         int64            `json:"total"`
	Failed        int64            `json:"failed"`
	Streaming     int64            `json:"streaming"`
	AvgDurationMs float64          `json:"avg_duration_ms"`
	PayloadKinds  map[string]int64 `json:"payload_kinds"`
	ErrorKinds    map[string]int64 `json:"error_kinds"`
}

func NewGORMStorage(logDir string, log *logrus.Logger) (*GORMStorage, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	dbPath := filepath.Join(logDir, turnDatabaseFile)
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dbPath + "?_pragma=journal_mode(WAL)",
	}, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one writer at a time is all sqlite allows
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = memory",
		fmt.Sprintf("PRAGMA cache_size = %d", appconfig.Default.Database.CacheSize),
		fmt.Sprintf("PRAGMA mmap_size = %d", appconfig.Default.Database.MmapSize),
		fmt.Sprintf("PRAGMA busy_timeout = %d", appconfig.Default.Database.BusyTimeout),
	} {
		if err := db.Exec(pragma).Error; err != nil {
			log.WithError(err).WithField("pragma", pragma).Warn("Failed to set sqlite pragma")
		}
	}

	if err := validateTableCompatibility(db); err != nil {
		if err := db.AutoMigrate(&GormTurnLog{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %v", err)
		}
	}
	if err := createOptimizedIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to create optimized indexes: %v", err)
	}

	storage := &GORMStorage{db: db, log: log}
	storage.startBackgroundCleanup(24*time.Hour, appconfig.Default.Database.RetentionDays)
	return storage, nil
}

// SaveLog never fails the caller; a turn that cannot be stored is only reported
func (g *GORMStorage) SaveLog(log *TurnLog) {
	row := ConvertToGormTurnLog(log)

	maxRetries := appconfig.Default.Database.MaxRetries
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = g.db.Create(row).Error; err == nil {
			return
		}
		if !isBusy(err) {
			break
		}
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}

	g.log.WithError(err).WithField("request_id", log.RequestID).Warn("Failed to save turn log")
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func (g *GORMStorage) GetLogs(limit, offset int, failedOnly bool) ([]*TurnLog, int, error) {
	query := g.db.Model(&GormTurnLog{})
	if failedOnly {
		query = query.Scopes(failedTurns)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %v", err)
	}

	var rows []GormTurnLog
	err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query logs: %v", err)
	}
	return convertRows(rows), int(total), nil
}

func (g *GORMStorage) GetLogsByRequestID(requestID string) ([]*TurnLog, error) {
	var rows []GormTurnLog
	err := g.db.Where("request_id = ?", requestID).Order("timestamp ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query logs by request ID: %v", err)
	}
	return convertRows(rows), nil
}

// GetStats aggregates every stored turn
func (g *GORMStorage) GetStats() (*TurnStats, error) {
	stats := &TurnStats{
		PayloadKinds: make(map[string]int64),
		ErrorKinds:   make(map[string]int64),
	}

	var totals struct {
		Total         int64
		Streaming     int64
		AvgDurationMs float64
	}
	err := g.db.Model(&GormTurnLog{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_streaming THEN 1 ELSE 0 END), 0) AS streaming, COALESCE(AVG(duration_ms), 0) AS avg_duration_ms").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate turns: %v", err)
	}
	stats.Total = totals.Total
	stats.Streaming = totals.Streaming
	stats.AvgDurationMs = totals.AvgDurationMs

	if err := g.db.Model(&GormTurnLog{}).Scopes(failedTurns).Count(&stats.Failed).Error; err != nil {
		return nil, fmt.Errorf("failed to count failed turns: %v", err)
	}

	groups := []struct {
		column string
		into   map[string]int64
	}{
		{"payload_kind", stats.PayloadKinds},
		{"error_kind", stats.ErrorKinds},
	}
	for _, group := range groups {
		var buckets []struct {
			Value string
			Count int64
		}
		err := g.db.Model(&GormTurnLog{}).
			Select(group.column + " AS value, COUNT(*) AS count").
			Where(group.column + " != ''").
			Group(group.column).
			Scan(&buckets).Error
		if err != nil {
			return nil, fmt.Errorf("failed to group turns by %s: %v", group.column, err)
		}
		for _, b := range buckets {
			group.into[b.Value] = b.Count
		}
	}

	return stats, nil
}

// CleanupLogsByDays deletes entries older than days; days <= 0 deletes everything
func (g *GORMStorage) CleanupLogsByDays(days int) (int64, error) {
	query := g.db.Where("1 = 1")
	if days > 0 {
		query = g.db.Where("timestamp < ?", time.Now().AddDate(0, 0, -days))
	}

	result := query.Delete(&GormTurnLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup logs: %v", result.Error)
	}

	if result.RowsAffected > 0 {
		if err := g.db.Exec("VACUUM").Error; err != nil {
			g.log.WithError(err).Warn("Failed to vacuum turn database")
		}
	}
	return result.RowsAffected, nil
}

func (g *GORMStorage) Close() error {
	if g.stopCleanup != nil {
		g.stopCleanup()
		<-g.cleanupDone
	}

	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GORMStorage) startBackgroundCleanup(interval time.Duration, retentionDays int) {
	ctx, cancel := context.WithCancel(context.Background())
	g.stopCleanup = cancel
	g.cleanupDone = make(chan struct{})

	go func() {
		defer close(g.cleanupDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deleted, err := g.CleanupLogsByDays(retentionDays)
				switch {
				case err != nil:
					g.log.WithError(err).Warn("Background turn log cleanup failed")
				case deleted > 0:
					g.log.WithField("deleted", deleted).Info("Background turn log cleanup")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func failedTurns(db *gorm.DB) *gorm.DB {
	return db.Where("status_code >= ? OR error != ?", 400, "")
}

func convertRows(rows []GormTurnLog) []*TurnLog {
	logs := make([]*TurnLog, len(rows))
	for i := range rows {
		logs[i] = ConvertFromGormTurnLog(&rows[i])
	}
	return logs
}
