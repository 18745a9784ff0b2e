// Package mailer は打刻結果のメール通知を送信する。
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/metrics"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/model"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/queue"
)

// Client はSMTP送信のインターフェース。
type Client interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Config はSMTP接続設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewClient は設定からSMTPクライアントを生成する。
func NewClient(cfg Config) (*mail.Client, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: failed to create smtp client: %w", err)
	}
	return client, nil
}

// Service は通知レーンのジョブを消費してメールを送信する。
type Service struct {
	client  Client
	from    string
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client Client, from string, recorder metrics.Recorder, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		from:    from,
		metrics: recorder,
		logger:  logger,
	}
}

// HandleMailJob は通知レーンのジョブハンドラー。
// 送信失敗はエラーとして返し、リース期限切れによる再配信に任せる。
// 解析できないペイロードは再配信しても回復しないため握りつぶす。
func (s *Service) HandleMailJob(ctx context.Context, job *queue.Job) error {
	var payload model.MailJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		s.logger.Error("通知ジョブのペイロードを解析できません",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := s.Send(ctx, payload); err != nil {
		s.metrics.RecordMailFailure()
		s.logger.Error("通知メールの送信に失敗しました",
			slog.String("recipient", payload.Recipient),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.metrics.RecordMailSent()
	s.logger.Info("通知メールを送信しました", slog.String("recipient", payload.Recipient))
	return nil
}

// Send は1件の通知メールをHTML本文で送信する。
func (s *Service) Send(ctx context.Context, payload model.MailJobPayload) error {
	message := mail.NewMsg()
	if err := message.From(s.from); err != nil {
		return fmt.Errorf("mailer: invalid sender address: %w", err)
	}
	if err := message.To(payload.Recipient); err != nil {
		return fmt.Errorf("mailer: invalid recipient address: %w", err)
	}
	message.Subject(payload.Subject)
	message.SetBodyString(mail.TypeTextHTML, payload.Body)

	if err := s.client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("mailer: failed to send mail: %w", err)
	}
	return nil
}
