package logger

import (
	"time"
)

// GormTurnLog is the turn_logs table row
type GormTurnLog struct {
	ID          uint      `gorm:"primaryKey;column:id;autoIncrement"`
	Timestamp   time.Time `gorm:"column:timestamp;index:idx_timestamp;not null"`
	RequestID   string    `gorm:"column:request_id;index:idx_request_id;size:100;not null"`
	ChatURL     string    `gorm:"column:chat_url;size:500;not null"`
	Question    string    `gorm:"column:question;type:text;default:''"`
	StatusCode  int       `gorm:"column:status_code;index:idx_status_code;default:0"`
	DurationMs  int64     `gorm:"column:duration_ms;default:0"`
	IsStreaming bool      `gorm:"column:is_streaming;default:false"`
	ContentType string    `gorm:"column:content_type;size:100;default:''"`

	// stream decoding
	DeltaCount int  `gorm:"column:delta_count;default:0"`
	SawDone    bool `gorm:"column:saw_done;default:false"`

	// formatting
	PayloadKind      string `gorm:"column:payload_kind;size:50;index:idx_payload_kind;default:''"`
	RawResponse      string `gorm:"column:raw_response;type:text;default:''"`
	RawResponseSize  int    `gorm:"column:raw_response_size;default:0"`
	FormattedContent string `gorm:"column:formatted_content;type:text;default:''"`

	Error     string `gorm:"column:error;type:text;default:''"`
	ErrorKind string `gorm:"column:error_kind;size:50;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (GormTurnLog) TableName() string {
	return "turn_logs"
}

func ConvertToGormTurnLog(log *TurnLog) *GormTurnLog {
	return &GormTurnLog{
		Timestamp:        log.Timestamp,
		RequestID:        log.RequestID,
		ChatURL:          log.ChatURL,
		Question:         log.Question,
		StatusCode:       log.StatusCode,
		DurationMs:       log.DurationMs,
		IsStreaming:      log.IsStreaming,
		ContentType:      log.ContentType,
		DeltaCount:       log.DeltaCount,
		SawDone:          log.SawDone,
		PayloadKind:      log.PayloadKind,
		RawResponse:      log.RawResponse,
		RawResponseSize:  log.RawResponseSize,
		FormattedContent: log.FormattedContent,
		Error:            log.Error,
		ErrorKind:        log.ErrorKind,
	}
}

func ConvertFromGormTurnLog(gormLog *GormTurnLog) *TurnLog {
	return &TurnLog{
		Timestamp:        gormLog.Timestamp,
		RequestID:        gormLog.RequestID,
		ChatURL:          gormLog.ChatURL,
		Question:         gormLog.Question,
		StatusCode:       gormLog.StatusCode,
		DurationMs:       gormLog.DurationMs,
		IsStreaming:      gormLog.IsStreaming,
		ContentType:      gormLog.ContentType,
		DeltaCount:       gormLog.DeltaCount,
		SawDone:          gormLog.SawDone,
		PayloadKind:      gormLog.PayloadKind,
		RawResponse:      gormLog.RawResponse,
		RawResponseSize:  gormLog.RawResponseSize,
		FormattedContent: gormLog.FormattedContent,
		Error:            gormLog.Error,
		ErrorKind:        gormLog.ErrorKind,
	}
}
