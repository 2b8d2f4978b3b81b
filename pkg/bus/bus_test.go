package bus

import (
	"testing"
)

func TestSubscribeDeliversInRegistrationOrder(t *testing.T) {
	b := New(nil)
	topic := Message("admin")

	var order []int
	for i := 0; i < 5; i++ {
		n := i
		if _, err := b.Subscribe(topic, func(any) { order = append(order, n) }); err != nil {
			t.Fatalf("subscribe %d: %v", n, err)
		}
	}

	b.Publish(topic, "hello")

	if len(order) != 5 {
		t.Fatalf("delivered to %d handlers, want 5", len(order))
	}
	for i, n := range order {
		if n != i {
			t.Errorf("position %d: got handler %d, want %d", i, n, i)
		}
	}
}

func TestUnsubscribedHandlerReceivesNothing(t *testing.T) {
	b := New(nil)
	topic := Connect("lobby")

	calls := 0
	sub, err := b.Subscribe(topic, func(any) { calls++ })
	if err != nil {
		t.Fatal(err)
	}

	b.Publish(topic, nil)
	sub.Cancel()
	b.Publish(topic, nil)
	sub.Cancel() // idempotent

	if calls != 1 {
		t.Errorf("got %d calls, want 1", calls)
	}
}

func TestPanickingHandlerDoesNotBlockDelivery(t *testing.T) {
	b := New(nil)
	topic := Message("admin")

	var reached bool
	b.Subscribe(topic, func(any) { panic("bad handler") })
	b.Subscribe(topic, func(any) { reached = true })

	b.Publish(topic, "payload")

	if !reached {
		t.Error("handler after the panicking one was not invoked")
	}
}

func TestPublishToEmptyTopicIsNoOp(t *testing.T) {
	b := New(nil)
	// must not panic or deliver anywhere
	b.Publish(Disconnect("room-one"), nil)
}

func TestExactMatchOnly(t *testing.T) {
	b := New(nil)

	var wildcard, exact int
	b.Subscribe(Topic{Kind: KindMessage, Sub: Wildcard}, func(any) { wildcard++ })
	b.Subscribe(Message("admin"), func(any) { exact++ })

	b.Publish(Message("admin"), "x")

	if wildcard != 0 {
		t.Errorf("wildcard subscriber saw %d exact publishes, want 0", wildcard)
	}
	if exact != 1 {
		t.Errorf("exact subscriber got %d, want 1", exact)
	}
}

func TestFanoutReachesWildcardThenExact(t *testing.T) {
	b := New(nil)

	var order []string
	b.Subscribe(Topic{Kind: KindMessage, Sub: Wildcard}, func(any) { order = append(order, "wildcard") })
	b.Subscribe(Message("room-one"), func(any) { order = append(order, "exact") })

	b.Fanout(KindMessage, "room-one", "payload")

	if len(order) != 2 || order[0] != "wildcard" || order[1] != "exact" {
		t.Errorf("got delivery order %v, want [wildcard exact]", order)
	}
}

func TestSubscribeRejectsMalformedTopics(t *testing.T) {
	b := New(nil)

	if _, err := b.Subscribe(Topic{Kind: "mystery"}, func(any) {}); err == nil {
		t.Error("unknown kind should be rejected")
	}
	if _, err := b.Subscribe(Topic{Kind: KindMessage, Sub: "a:b"}, func(any) {}); err == nil {
		t.Error("subtopic with separator should be rejected")
	}
	if _, err := b.Subscribe(Message("admin"), nil); err == nil {
		t.Error("nil handler should be rejected")
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("message:admin")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindMessage || got.Sub != "admin" {
		t.Errorf("got %+v", got)
	}

	bare, err := Parse("connect")
	if err != nil {
		t.Fatal(err)
	}
	if bare.Sub != "" {
		t.Errorf("bare topic should have empty subtopic, got %q", bare.Sub)
	}

	if _, err := Parse("teleport:lobby"); err == nil {
		t.Error("unknown kind should fail to parse")
	}
	if _, err := Parse(""); err == nil {
		t.Error("empty topic should fail to parse")
	}
}

func TestUnsubscribePreservesOthers(t *testing.T) {
	b := New(nil)
	topic := Select("resp-1")

	var got []string
	subA, _ := b.Subscribe(topic, func(any) { got = append(got, "a") })
	b.Subscribe(topic, func(any) { got = append(got, "b") })
	_ = subA

	subA.Cancel()
	b.Publish(topic, nil)

	if len(got) != 1 || got[0] != "b" {
		t.Errorf("got %v, want [b]", got)
	}
}
