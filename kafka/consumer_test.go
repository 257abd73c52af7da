package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ByLCY/versereel/pipeline"
)

func TestDecode(t *testing.T) {
	req, err := Decode([]byte(`{"id":"k1","surah":1,"ayah":7,"reciter":"ar.husary","publish":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID != "k1" || req.Surah != 1 || req.Ayah != 7 || !req.Publish {
		t.Fatalf("unexpected request %+v", req)
	}
	for _, raw := range []string{`{`, `{"surah":1}`, `{"reciter":"nobody"}`, `{"output":"/var/www/x.mp4"}`, `{"template":"../../etc/passwd"}`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("Decode(%s): expected error", raw)
		}
	}
}

func TestProcess(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		err     error
		retry   bool
		handled bool
	}{
		{"success", `{"surah":112,"ayah":1}`, nil, false, true},
		{"malformed is skipped", `garbage`, nil, false, false},
		{"unsafe path is skipped", `{"output":"/etc/x.mp4"}`, nil, false, false},
		{"transient failure is retried", `{}`, errors.New("ffmpeg busy"), true, true},
		{"permanent failure is marked", `{}`, fmt.Errorf("bad verse: %w", ErrPermanent), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handled := false
			h := &groupHandler{log: zap.NewNop(), handle: func(ctx context.Context, req pipeline.Request) error {
				handled = true
				return tc.err
			}}
			err := h.process(context.Background(), &sarama.ConsumerMessage{Value: []byte(tc.payload)})
			if (err != nil) != tc.retry || handled != tc.handled {
				t.Fatalf("err=%v handled=%v, want retry=%v handled=%v", err, handled, tc.retry, tc.handled)
			}
		})
	}
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32                        { return nil }
func (s *fakeSession) MemberID() string                                  { return "m" }
func (s *fakeSession) GenerationID() int32                               { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)           {}
func (s *fakeSession) Commit()                                           {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)          {}
func (s *fakeSession) Context() context.Context                          { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg.Offset) }

type fakeClaim struct{ msgs chan *sarama.ConsumerMessage }

func (c fakeClaim) Topic() string                            { return "renders" }
func (c fakeClaim) Partition() int32                         { return 0 }
func (c fakeClaim) InitialOffset() int64                     { return 0 }
func (c fakeClaim) HighWaterMarkOffset() int64               { return int64(len(c.msgs)) }
func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

// 暂时性失败后不能再标记之后的消息，否则提交的位移会越过失败消息。
func TestConsumeClaimStopsAtTransientFailure(t *testing.T) {
	claim := fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 3)}
	for i, id := range []string{"ok", "busy", "later"} {
		claim.msgs <- &sarama.ConsumerMessage{Offset: int64(i), Value: []byte(`{"id":"` + id + `"}`)}
	}
	close(claim.msgs)

	var seen []string
	h := &groupHandler{log: zap.NewNop(), handle: func(ctx context.Context, req pipeline.Request) error {
		seen = append(seen, req.ID)
		if req.ID == "busy" {
			return errors.New("ffmpeg busy")
		}
		return nil
	}}
	sess := &fakeSession{ctx: context.Background()}
	if err := h.ConsumeClaim(sess, claim); err == nil {
		t.Fatal("expected the claim to stop with an error")
	}
	if len(sess.marked) != 1 || sess.marked[0] != 0 {
		t.Fatalf("only the first offset may be marked, got %v", sess.marked)
	}
	if len(seen) != 2 {
		t.Fatalf("messages after the failure must not be handled, got %v", seen)
	}
	if !h.failed.Load() {
		t.Fatal("expected the handler to record the failure")
	}
}

func TestConsumeClaimMarksEveryHandledMessage(t *testing.T) {
	claim := fakeClaim{msgs: make(chan *sarama.ConsumerMessage, 3)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 0, Value: []byte(`{}`)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 1, Value: []byte(`garbage`)}
	claim.msgs <- &sarama.ConsumerMessage{Offset: 2, Value: []byte(`{}`)}
	close(claim.msgs)

	h := &groupHandler{log: zap.NewNop(), handle: func(ctx context.Context, req pipeline.Request) error {
		return fmt.Errorf("no audio: %w", ErrPermanent)
	}}
	sess := &fakeSession{ctx: context.Background()}
	if err := h.ConsumeClaim(sess, claim); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sess.marked) != 3 {
		t.Fatalf("expected all offsets marked, got %v", sess.marked)
	}
}

func TestNewConsumerRequiresConfig(t *testing.T) {
	if _, err := NewConsumer(Config{Topic: "renders"}, nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}
