package boleto

import (
	"time"

	"github.com/zombor/boleto-reader/internal/fields"
)

// Document is an uploaded boleto together with what was read from it
type Document struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"` // path relative to storage
	Original    string        `json:"original"` // name as uploaded
	ContentType string        `json:"content_type"`
	Fields      fields.Record `json:"fields"`
	Text        string        `json:"text"`
	CreatedAt   time.Time     `json:"created_at"`
}
