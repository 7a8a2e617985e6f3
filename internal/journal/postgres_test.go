package journal

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"
)

func TestInsertArgs(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))
	e := NewEntry(EventMoveApplied, "ABCDEF", "u1", at, map[string]any{"from": 12, "to": 28})
	args, err := insertArgs(e)
	if err != nil {
		t.Fatalf("insertArgs: %v", err)
	}
	if len(args) != 6 || args[0] != e.ID || args[1] != EventMoveApplied || args[2] != "ABCDEF" || args[3] != "u1" {
		t.Fatalf("unexpected args %v", args)
	}
	if args[4] != `{"from":12,"to":28}` {
		t.Fatalf("unexpected detail %v", args[4])
	}
	if ts := args[5].(time.Time); ts.Location() != time.UTC || !ts.Equal(at) {
		t.Fatalf("timestamp not normalized: %v", ts)
	}

	args, err = insertArgs(Entry{ID: "x", Event: EventRoomCreated, Code: "ABCDEF"})
	if err != nil {
		t.Fatalf("insertArgs: %v", err)
	}
	if args[4] != nil {
		t.Fatalf("empty detail should be NULL, got %v", args[4])
	}
	if args[5].(time.Time).IsZero() {
		t.Fatalf("zero time should be stamped")
	}
}

func TestNewEntryIDsAreUnique(t *testing.T) {
	a := NewEntry(EventRoomCreated, "ABCDEF", "", time.Now(), nil)
	b := NewEntry(EventRoomCreated, "ABCDEF", "", time.Now(), nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct IDs: %q %q", a.ID, b.ID)
	}
}

func TestCloseDrainsWithoutDatabase(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://relay@127.0.0.1:1/relay?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	p := newPostgres(db, 2)
	for i := 0; i < 10; i++ {
		p.Record(NewEntry(EventRoomCreated, "ABCDEF", "", time.Now(), nil))
	}

	done := make(chan error, 1)
	go func() { done <- p.Close() }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("Close did not return")
	}
	// recording after close is a no-op
	p.Record(NewEntry(EventRoomCreated, "ABCDEF", "", time.Now(), nil))
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.Record(Entry{})
}

func TestPostgresRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, url, 8)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	e := NewEntry(EventPlayerJoined, "JRNLTS", "u1", time.Now(), map[string]any{"color": "white"})
	p.Record(e)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var event, uid string
	if err := db.QueryRowContext(ctx, `SELECT event, uid FROM relay_events WHERE id = $1`, e.ID).Scan(&event, &uid); err != nil {
		t.Fatalf("select: %v", err)
	}
	if event != EventPlayerJoined || uid != "u1" {
		t.Fatalf("unexpected row %q %q", event, uid)
	}
}
