package notify

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
)

func groceriesBatch() AlertBatch {
	return NewAlertBatch(1, 2024, 5, []core.Alert{{
		Category:   "Groceries",
		Actual:     core.Cents(5250),
		Budget:     core.Cents(5000),
		ExceededBy: core.Cents(250),
	}})
}

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestAlertBatch_Text(t *testing.T) {
	text := groceriesBatch().Text()
	for _, want := range []string{
		"Budget alerts for 2024-05 (owner 1)",
		"You have exceeded your budget for Groceries by 2.50€",
		"spent 52.50€ of 50.00€",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() = %q, missing %q", text, want)
		}
	}
}

func TestTelegramNotifier(t *testing.T) {
	t.Run("sends one message to the chat", func(t *testing.T) {
		sender := &fakeSender{}
		n := NewTelegramNotifierWithSender(sender, -100200)

		if err := n.Notify(context.Background(), groceriesBatch()); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if len(sender.sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(sender.sent))
		}
		msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("sent %T, want MessageConfig", sender.sent[0])
		}
		if msg.ChatID != -100200 || !strings.Contains(msg.Text, "Groceries") {
			t.Errorf("unexpected message %+v", msg)
		}
	})

	t.Run("skips empty batches", func(t *testing.T) {
		sender := &fakeSender{}
		n := NewTelegramNotifierWithSender(sender, 1)
		if err := n.Notify(context.Background(), NewAlertBatch(1, 2024, 5, nil)); err != nil {
			t.Fatalf("Notify() error = %v", err)
		}
		if len(sender.sent) != 0 {
			t.Errorf("sent %d messages for an empty batch", len(sender.sent))
		}
	})

	t.Run("wraps send failures", func(t *testing.T) {
		boom := errors.New("bad gateway")
		n := NewTelegramNotifierWithSender(&fakeSender{err: boom}, 1)
		if err := n.Notify(context.Background(), groceriesBatch()); !errors.Is(err, boom) {
			t.Errorf("Notify() error = %v, want wrapped %v", err, boom)
		}
	})
}

type fakePublisher struct {
	published []*amqp.AlertMessage
}

func (f *fakePublisher) PublishAlertBatch(_ context.Context, msg *amqp.AlertMessage) error {
	f.published = append(f.published, msg)
	return nil
}

func TestAMQPNotifier_RoundTrip(t *testing.T) {
	pub := &fakePublisher{}
	batch := groceriesBatch()

	if err := NewAMQPNotifier(pub).Notify(context.Background(), batch); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	msg := pub.published[0]
	if msg.ID != batch.ID {
		t.Errorf("message id %s, want batch id %s", msg.ID, batch.ID)
	}
	if msg.Alerts[0].Message != batch.Alerts[0].Message() {
		t.Errorf("message text %q", msg.Alerts[0].Message)
	}
	if got := FromMessage(msg); !reflect.DeepEqual(got, batch) {
		t.Errorf("FromMessage() = %+v, want %+v", got, batch)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(log.New(log.Config{Output: &buf, Format: "json"}))

	if err := n.Notify(context.Background(), groceriesBatch()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"component":"notify"`, `"category":"Groceries"`, `"amount_cents":250`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}
