package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/wneessen/go-mail"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/metrics"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/queue"
)

type fakeClient struct {
	sent    []*mail.Msg
	sendErr error
}

func (c *fakeClient) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, messages...)
	return nil
}

func newTestService(client *fakeClient) *Service {
	return NewService(client, "noreply@example.com", metrics.Noop{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mailJob(t *testing.T, payload model.MailJobPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: "job-1", Lane: queue.LaneMail, Type: queue.TypeSendMail, Payload: raw}
}

func TestHandleMailJob_Sends(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(client)

	job := mailJob(t, model.MailJobPayload{
		Recipient: "a@example.com",
		Subject:   "Successfully Clock In at 08:30:00",
		Body:      "<p>done</p>",
	})
	if err := service.HandleMailJob(context.Background(), job); err != nil {
		t.Fatalf("HandleMailJob failed: %v", err)
	}

	if len(client.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(client.sent))
	}
	subject := client.sent[0].GetGenHeader(mail.HeaderSubject)
	if len(subject) != 1 || subject[0] != "Successfully Clock In at 08:30:00" {
		t.Errorf("subject = %v", subject)
	}
}

func TestHandleMailJob_SendFailureIsHard(t *testing.T) {
	client := &fakeClient{sendErr: errors.New("smtp connection refused")}
	service := newTestService(client)

	job := mailJob(t, model.MailJobPayload{Recipient: "a@example.com", Subject: "s", Body: "b"})

	// 送信失敗はエラーを返してリース再配信に任せる
	if err := service.HandleMailJob(context.Background(), job); err == nil {
		t.Fatal("HandleMailJob should return the send error")
	}
}

func TestHandleMailJob_MalformedPayload(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(client)

	job := &queue.Job{ID: "job-1", Payload: json.RawMessage(`not json`)}
	if err := service.HandleMailJob(context.Background(), job); err != nil {
		t.Fatalf("HandleMailJob should swallow malformed payloads, got %v", err)
	}
	if len(client.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(client.sent))
	}
}

func TestSend_InvalidRecipient(t *testing.T) {
	client := &fakeClient{}
	service := newTestService(client)

	err := service.Send(context.Background(), model.MailJobPayload{
		Recipient: "not-an-address",
		Subject:   "s",
		Body:      "b",
	})
	if err == nil {
		t.Fatal("Send should reject an invalid recipient address")
	}
	if len(client.sent) != 0 {
		t.Errorf("sent = %d, want 0", len(client.sent))
	}
}
