package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLaneKeys(t *testing.T) {
	if got := scheduledKey(LaneAttendance); got != "queue:attendance:scheduled" {
		t.Errorf("scheduledKey = %q", got)
	}
	if got := processingKey(LaneMail); got != "queue:mail:processing" {
		t.Errorf("processingKey = %q", got)
	}
}

// ジョブはJSONメンバーとして往復しても内容が保持されることを検証
func TestJob_JSONRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	original := &Job{
		ID:         "job-1",
		Lane:       LaneAttendance,
		Type:       TypeAutoClockIn,
		Payload:    json.RawMessage(`{"actionType":"Clock In"}`),
		Attempt:    1,
		EnqueuedAt: now,
		ReadyAt:    now.Add(5 * time.Second),
	}

	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	decoded := &Job{}
	if err := json.Unmarshal(raw, decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.ID != original.ID || decoded.Lane != original.Lane || decoded.Type != original.Type {
		t.Errorf("decoded job = %+v, want %+v", decoded, original)
	}
	if string(decoded.Payload) != string(original.Payload) {
		t.Errorf("payload = %s, want %s", decoded.Payload, original.Payload)
	}
	if !decoded.ReadyAt.Equal(original.ReadyAt) {
		t.Errorf("readyAt = %v, want %v", decoded.ReadyAt, original.ReadyAt)
	}
}

// ゼロ値の設定はデフォルト値で補完されることを検証
func TestNewConsumer_FillsDefaults(t *testing.T) {
	c := NewConsumer(nil, LaneMail, nil, nil, ConsumerConfig{})

	def := DefaultConsumerConfig()
	if c.config.PollInterval != def.PollInterval {
		t.Errorf("PollInterval = %v, want %v", c.config.PollInterval, def.PollInterval)
	}
	if c.config.LeaseTime != def.LeaseTime {
		t.Errorf("LeaseTime = %v, want %v", c.config.LeaseTime, def.LeaseTime)
	}
	if c.config.BatchSize != def.BatchSize {
		t.Errorf("BatchSize = %d, want %d", c.config.BatchSize, def.BatchSize)
	}
	if c.config.MaxConcurrency != def.MaxConcurrency {
		t.Errorf("MaxConcurrency = %d, want %d", c.config.MaxConcurrency, def.MaxConcurrency)
	}
}

func TestNewConsumer_KeepsExplicitConfig(t *testing.T) {
	cfg := ConsumerConfig{
		PollInterval:   5 * time.Second,
		LeaseTime:      time.Minute,
		BatchSize:      3,
		MaxConcurrency: 1,
	}
	c := NewConsumer(nil, LaneAttendance, nil, nil, cfg)
	if c.config != cfg {
		t.Errorf("config = %+v, want %+v", c.config, cfg)
	}
}
