package messaging

import (
	"context"
	"fmt"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-chat/pkg/mailer/templates"
)

// JobPublisher puts a JSON job on the email queue. *helpers.RabbitPublisher implements it.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EmailReceiptHandler queues a receipt email to the author of every sent message.
type EmailReceiptHandler struct {
	jobs  JobPublisher
	brand mailtpl.Brand
}

func NewEmailReceiptHandler(jobs JobPublisher, brand mailtpl.Brand) *EmailReceiptHandler {
	return &EmailReceiptHandler{jobs: jobs, brand: brand}
}

func (h *EmailReceiptHandler) Name() string { return "email_receipt" }

func (h *EmailReceiptHandler) Handle(ctx context.Context, event entity.DomainEvent) error {
	sent, ok := event.(entity.MessageSent)
	if !ok {
		return nil
	}
	msg := sent.Message
	sender := msg.Sender()

	data := mailtpl.NewReceiptData(h.brand, sender.Name().String(), sender.Email().String(),
		mailtpl.WithMessage(sent.ChatID.String(), msg.ID().String(), msg.Content()),
		mailtpl.WithSentAt(msg.Timestamp()),
	)
	job := mailer.EmailJob{
		To:       sender.Email().String(),
		Template: mailtpl.MessageReceipt,
		Data:     mailtpl.ToMap(data),
	}
	if err := h.jobs.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("queue receipt for message %s: %w", msg.ID(), err)
	}
	return nil
}

var _ EventHandler = (*EmailReceiptHandler)(nil)
