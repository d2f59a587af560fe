package events

import (
	"context"
	"testing"
)

func TestChannelPublisherDelivers(t *testing.T) {
	pub := NewChannelPublisher(4)
	ctx := context.Background()
	if err := pub.Publish(ctx, TopicRunStarted, RunStarted{RunID: "r1", Items: 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	env := <-pub.Events()
	if env.Topic != TopicRunStarted {
		t.Fatalf("unexpected topic %s", env.Topic)
	}
	started, ok := env.Event.(RunStarted)
	if !ok || started.RunID != "r1" {
		t.Fatalf("unexpected event %+v", env.Event)
	}
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	pub := NewChannelPublisher(1)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := pub.Publish(ctx, TopicItemStarted, ItemStarted{ItemID: "a"}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	count := 0
	for range pub.Events() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 buffered event, got %d", count)
	}
}

func TestChannelPublisherPublishAfterClose(t *testing.T) {
	pub := NewChannelPublisher(1)
	if err := pub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pub.Publish(context.Background(), TopicRunFinished, RunFinished{}); err != nil {
		t.Fatalf("publish after close should be a no-op, got %v", err)
	}
}

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicRunStarted, nil); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}

func TestMultiPublisherFansOut(t *testing.T) {
	a := NewChannelPublisher(4)
	b := NewChannelPublisher(4)
	multi := NewMultiPublisher(a, nil, b)

	if err := multi.Publish(context.Background(), TopicRunStarted, RunStarted{RunID: "r2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for _, pub := range []*ChannelPublisher{a, b} {
		env := <-pub.Events()
		if env.Topic != TopicRunStarted {
			t.Fatalf("unexpected topic %s", env.Topic)
		}
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
