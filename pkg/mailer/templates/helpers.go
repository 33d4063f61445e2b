package templates

import (
	"time"

	"github.com/oksasatya/go-ddd-chat/config"
)

const timeLayout = "02 January 2006, 15:04 MST"

// Brand holds the sender-side details shown in every email.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

func BrandFromConfig(cfg *config.Config) Brand {
	return Brand{AppName: cfg.AppName, CompanyName: cfg.CompanyName, SupportURL: cfg.SupportURL}
}

// Option pattern
type Option func(*ReceiptData)

func WithMessage(chatID, messageID, content string) Option {
	return func(d *ReceiptData) {
		d.ChatID = chatID
		d.MessageID = messageID
		d.Content = content
	}
}

func WithSentAt(t time.Time) Option {
	return func(d *ReceiptData) {
		utc := t.UTC()
		d.SentAt = utc
		d.SentAtText = utc.Format(timeLayout)
	}
}

// NewReceiptData fills the brand fields and the recipient, then applies opts.
func NewReceiptData(b Brand, name, email string, opts ...Option) ReceiptData {
	d := ReceiptData{
		Name:        name,
		Email:       email,
		AppName:     b.AppName,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
