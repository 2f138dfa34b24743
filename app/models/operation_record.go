package models

import (
	"time"
)

const (
	OperationStatusSuccess = "success"
	OperationStatusFailure = "failure"
)

// Operation types correspond to the document transformations the service offers.
const (
	OpMergePDF      = "merge_pdf"
	OpSplitPDF      = "split_pdf"
	OpExtractText   = "extract_text"
	OpExtractImages = "extract_images"
	OpCompressPDF   = "compress_pdf"
	OpEncryptPDF    = "encrypt_pdf"
	OpDecryptPDF    = "decrypt_pdf"
	OpWatermarkPDF  = "watermark_pdf"
	OpImagesToPDF   = "images_to_pdf"
)

// OperationRecord is one row of the append-only operations log. Rows are never
// updated or deleted by this subsystem; retention is handled elsewhere.
type OperationRecord struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"index;not null" json:"user_id"`
	Operation   string        `gorm:"type:varchar(64);not null;index" json:"operation"`
	Status      string        `gorm:"type:varchar(20);not null" json:"status"`
	Duration    time.Duration `gorm:"not null;default:0" json:"duration"`
	OutputSize  int64         `gorm:"not null;default:0" json:"output_size"`
	ErrorDetail string        `gorm:"type:text" json:"error_detail,omitempty"`
	CreatedAt   time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

func (OperationRecord) TableName() string {
	return "operations_log"
}

// Succeeded reports whether the recorded operation completed successfully.
func (r *OperationRecord) Succeeded() bool {
	return r.Status == OperationStatusSuccess
}
