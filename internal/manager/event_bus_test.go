package manager

import "testing"

func TestEventBusSinceAndEviction(t *testing.T) {
	b := NewEventBus(3)
	for i := 0; i < 5; i++ {
		b.Publish(Event{Name: EventJobProgress, JobID: "j"})
	}
	if b.LastSeq() != 5 {
		t.Fatalf("LastSeq = %d, want 5", b.LastSeq())
	}
	all := b.Events()
	if len(all) != 3 || all[0].Seq != 3 || all[2].Seq != 5 {
		t.Fatalf("unexpected buffer: %+v", all)
	}
	if all[0].Time.IsZero() {
		t.Fatalf("publish should stamp time")
	}
	if got := b.Since(4); len(got) != 1 || got[0].Seq != 5 {
		t.Fatalf("Since(4) = %+v", got)
	}
	if got := b.Since(5); len(got) != 0 {
		t.Fatalf("Since(5) = %+v", got)
	}
}

func TestNoopPublisher(t *testing.T) {
	var p EventPublisher = noopPublisher{}
	p.Publish(Event{Name: EventJobCreated})
}
