// services/hal/mailbox_test.go
package hal

import "testing"

func TestMailboxEmpty(t *testing.T) {
	var mb Mailbox
	if _, ok := mb.Take(); ok {
		t.Fatal("fresh mailbox should be empty")
	}
}

func TestMailboxRoundTrip(t *testing.T) {
	var mb Mailbox
	mb.Store(15, true, 123456)

	e, ok := mb.Take()
	if !ok {
		t.Fatal("expected an edge")
	}
	if e.Pin != 15 || !e.Level || e.TS != 123456 {
		t.Errorf("got %+v", e)
	}
	if _, ok := mb.Take(); ok {
		t.Error("second take should find the mailbox drained")
	}
}

func TestMailboxLatestWins(t *testing.T) {
	var mb Mailbox
	mb.Store(15, false, 100)
	mb.Store(14, true, 200) // overwrites the unread edge

	e, ok := mb.Take()
	if !ok {
		t.Fatal("expected an edge")
	}
	if e.Pin != 14 || !e.Level || e.TS != 200 {
		t.Errorf("expected the newer edge, got %+v", e)
	}
	if _, ok := mb.Take(); ok {
		t.Error("the overwritten edge must not resurface")
	}
}

func TestMailboxTimestampWidth(t *testing.T) {
	var mb Mailbox
	const ts = int64(1) << 47 // near the top of the 48-bit window
	mb.Store(2, false, ts)
	e, _ := mb.Take()
	if e.TS != ts {
		t.Errorf("timestamp mangled: got %d, want %d", e.TS, ts)
	}
}
