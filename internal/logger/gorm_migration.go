package logger

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// createOptimizedIndexes adds the composite indexes used by GetLogs and
// GetLogsByRequestID on top of the single-column ones AutoMigrate creates.
func createOptimizedIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_turn_logs_timestamp_status ON turn_logs(timestamp DESC, status_code)",
		"CREATE INDEX IF NOT EXISTS idx_turn_logs_pagination ON turn_logs(timestamp DESC, id)",
		"CREATE INDEX IF NOT EXISTS idx_turn_logs_request_id_time ON turn_logs(request_id, timestamp ASC)",
		"CREATE INDEX IF NOT EXISTS idx_turn_logs_error_time ON turn_logs(timestamp DESC) WHERE error != ''",
		"CREATE INDEX IF NOT EXISTS idx_turn_logs_kind_time ON turn_logs(payload_kind, timestamp DESC)",
	}

	for _, sql := range indexes {
		if err := db.Exec(sql).Error; err != nil {
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "duplicate") {
				return fmt.Errorf("failed to create index: %v", err)
			}
		}
	}
	return nil
}

// validateTableCompatibility checks an existing turn_logs table and adds
// columns introduced after it was created.
func validateTableCompatibility(db *gorm.DB) error {
	if !db.Migrator().HasTable(&GormTurnLog{}) {
		return fmt.Errorf("turn_logs table does not exist")
	}

	requiredColumns := []string{
		"timestamp", "request_id", "chat_url", "status_code", "duration_ms", "is_streaming",
	}
	for _, column := range requiredColumns {
		if !db.Migrator().HasColumn(&GormTurnLog{}, column) {
			return fmt.Errorf("required column %s does not exist", column)
		}
	}

	optionalColumns := map[string]string{
		"delta_count":       "delta_count INTEGER DEFAULT 0",
		"saw_done":          "saw_done BOOLEAN DEFAULT 0",
		"payload_kind":      "payload_kind VARCHAR(50) DEFAULT ''",
		"formatted_content": "formatted_content TEXT DEFAULT ''",
		"error_kind":        "error_kind VARCHAR(50) DEFAULT ''",
	}
	for column, definition := range optionalColumns {
		if !db.Migrator().HasColumn(&GormTurnLog{}, column) {
			sql := fmt.Sprintf("ALTER TABLE turn_logs ADD COLUMN %s", definition)
			if err := db.Exec(sql).Error; err != nil {
				return fmt.Errorf("failed to add column %s: %v", column, err)
			}
		}
	}

	return nil
}
