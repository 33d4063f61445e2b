package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-ddd-chat/pkg/mailer/templates"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Renderer produces subject, text and html bodies from a template name.
type Renderer func(name string, data any) (subject, text, html string, err error)

// Decision tells the consumer what to do with a delivery.
type Decision int

const (
	Ack     Decision = iota
	Requeue          // not attempted, hand it to another consumer
	Drop             // the job can never succeed or ran out of attempts
)

func (d Decision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Worker turns queued EmailJobs into sent mail.
type Worker struct {
	sender      Sender
	render      Renderer
	logger      *logrus.Logger
	sendTimeout time.Duration
	attempts    int
	backoff     time.Duration
}

func NewWorker(sender Sender, logger *logrus.Logger) *Worker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		sender:      sender,
		render:      mailtpl.Render,
		logger:      logger,
		sendTimeout: 15 * time.Second,
		attempts:    3,
		backoff:     500 * time.Millisecond,
	}
}

// WithRetry bounds how often a failing send is retried before the job is
// dropped. The wait doubles after each failure.
func (w *Worker) WithRetry(attempts int, backoff time.Duration) *Worker {
	if attempts < 1 {
		attempts = 1
	}
	w.attempts = attempts
	w.backoff = backoff
	return w
}

// WithRenderer swaps the template renderer.
func (w *Worker) WithRenderer(r Renderer) *Worker {
	w.render = r
	return w
}

// Handle processes one queued job. Undecodable or unrenderable jobs are
// dropped. A failing send is retried in place and dropped once the attempts
// run out, so a job is never put back on the queue after a send was tried.
func (w *Worker) Handle(ctx context.Context, body []byte) Decision {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.WithError(err).Error("bad email job payload")
		return Drop
	}
	job.To = strings.TrimSpace(job.To)
	if job.To == "" {
		w.logger.WithField("template", job.Template).Error("email job without recipient")
		return Drop
	}
	log := w.logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template})

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
			job.Data["Email"] = job.To
		}
		s, t, h, err := w.render(job.Template, job.Data)
		if err != nil {
			log.WithError(err).Error("render email failed")
			return Drop
		}
		subject, text, html = s, t, h
	}
	if subject == "" || (text == "" && html == "") {
		log.Error("email job has no content")
		return Drop
	}

	if ctx.Err() != nil {
		return Requeue
	}
	wait := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.send(ctx, job.To, subject, text, html)
		if err == nil {
			log.WithField("attempt", attempt).Info("email sent")
			return Ack
		}
		log := log.WithError(err).WithField("attempt", attempt)
		if attempt >= w.attempts {
			log.Error("send email failed, dropping job")
			return Drop
		}
		log.Warn("send email failed, retrying")
		select {
		case <-ctx.Done():
			log.Error("shutting down, dropping job")
			return Drop
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func (w *Worker) send(ctx context.Context, to, subject, text, html string) error {
	c, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	return w.sender.Send(c, to, subject, text, html)
}

// Run consumes deliveries until the channel closes or ctx is done.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var err error
			switch w.Handle(ctx, d.Body) {
			case Ack:
				err = d.Ack(false)
			case Requeue:
				err = d.Nack(false, true)
			case Drop:
				err = d.Nack(false, false)
			}
			if err != nil {
				w.logger.WithError(err).Warn("acknowledge delivery failed")
			}
		}
	}
}
