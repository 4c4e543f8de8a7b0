package queue

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestLogQueue_DeliversToSubscribers(t *testing.T) {
	q := NewLogQueue(zap.NewNop())

	var got []string
	if err := q.Subscribe("fuel.tank.recomputed", func(data []byte) error {
		got = append(got, string(data))
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := q.Subscribe("fuel.tank.recomputed", func(data []byte) error {
		return errors.New("handler failure is logged, not returned")
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := q.Publish("fuel.tank.recomputed", []byte(`{"tank_id":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.Publish("fuel.intake.confirmed", []byte(`{}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(got) != 1 || got[0] != `{"tank_id":1}` {
		t.Errorf("unexpected deliveries: %v", got)
	}
}
