package db_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/onnwee/murphbot/db"
	"github.com/onnwee/murphbot/queue"
	"github.com/onnwee/murphbot/testutil"
)

func TestSnapshotRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = database.ExecContext(context.Background(), `DELETE FROM snapshots WHERE name='test_queue'`)
	})

	if state, err := db.LoadSnapshot(ctx, database, "test_queue"); err != nil || state != nil {
		t.Fatalf("expected no snapshot, got %v / %v", state, err)
	}

	m := queue.NewManager(queue.Options{Capacity: 2})
	m.Join("alice")
	m.Join("bob")
	m.Join("carol")
	blob, err := json.Marshal(m.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := db.SaveSnapshot(ctx, database, "test_queue", blob); err != nil {
		t.Fatalf("save: %v", err)
	}

	state, err := db.LoadSnapshot(ctx, database, "test_queue")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var s queue.Snapshot
	if err := json.Unmarshal(state, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s.Main) != 2 || len(s.Overflow) != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}

	// saving again overwrites
	m.Leave("alice")
	blob, _ = json.Marshal(m.Snapshot())
	if err := db.SaveSnapshot(ctx, database, "test_queue", blob); err != nil {
		t.Fatalf("second save: %v", err)
	}
	state, _ = db.LoadSnapshot(ctx, database, "test_queue")
	_ = json.Unmarshal(state, &s)
	if len(s.Overflow) != 0 {
		t.Fatalf("overwrite failed: %+v", s)
	}
}

func TestCommandCRUD(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = database.ExecContext(context.Background(), `DELETE FROM commands WHERE name IN ('discord','socials')`)
	})

	if err := db.UpsertCommand(ctx, database, "discord", "join at discord.gg/example", "mod1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.UpsertCommand(ctx, database, "socials", "follow on bsky", "mod1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	cmd, found, err := db.GetCommand(ctx, database, "discord")
	if err != nil || !found {
		t.Fatalf("get: %v found=%v", err, found)
	}
	if cmd.Response != "join at discord.gg/example" || cmd.CreatedBy != "mod1" {
		t.Fatalf("unexpected command: %+v", cmd)
	}

	// upsert updates the response
	if err := db.UpsertCommand(ctx, database, "discord", "new link", "mod2"); err != nil {
		t.Fatalf("update: %v", err)
	}
	cmd, _, _ = db.GetCommand(ctx, database, "discord")
	if cmd.Response != "new link" {
		t.Fatalf("update not applied: %+v", cmd)
	}

	names, err := db.ListCommands(ctx, database)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected at least 2 commands, got %v", names)
	}

	deleted, err := db.DeleteCommand(ctx, database, "discord")
	if err != nil || !deleted {
		t.Fatalf("delete: %v deleted=%v", err, deleted)
	}
	if deleted, _ := db.DeleteCommand(ctx, database, "discord"); deleted {
		t.Fatal("second delete should report no row")
	}
	if _, found, _ := db.GetCommand(ctx, database, "discord"); found {
		t.Fatal("command still present after delete")
	}
}

func TestKV(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	t.Cleanup(func() {
		_, _ = database.ExecContext(context.Background(), `DELETE FROM kv WHERE key='test_key'`)
	})

	if v, err := db.GetKV(ctx, database, "test_key"); err != nil || v != "" {
		t.Fatalf("expected empty value, got %q / %v", v, err)
	}
	if err := db.SetKV(ctx, database, "test_key", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetKV(ctx, database, "test_key", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _ := db.GetKV(ctx, database, "test_key"); v != "v2" {
		t.Fatalf("expected v2, got %q", v)
	}
}
