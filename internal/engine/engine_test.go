package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()

	eng, err := Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func collectRows(t *testing.T, eng *Engine, text string) []Row {
	t.Helper()

	var rows []Row
	err := eng.Execute(context.Background(), text, func(row Row) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute %q failed: %v", text, err)
	}
	return rows
}

func TestOpen_CreatesMissingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")

	eng, err := Open(path, false)
	if err != nil {
		t.Fatalf("Failed to open a fresh store: %v", err)
	}
	defer eng.Close()

	if eng.Path() != path {
		t.Errorf("Path() = %q, want %q", eng.Path(), path)
	}
	if rows := collectRows(t, eng, "SELECT 1 AS x;"); len(rows) != 1 {
		t.Errorf("fresh store should answer queries, got %d row(s)", len(rows))
	}
}

func TestOpen_ReadOnlyRequiresExistingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	eng, err := Open(path, true)
	if err == nil {
		eng.Close()
		t.Fatal("read-only open of a missing store should fail")
	}
}

func TestExecute_RowAndColumnOrder(t *testing.T) {
	eng := openTestEngine(t)

	collectRows(t, eng, `
		CREATE TABLE t (a TEXT, b INTEGER);
		INSERT INTO t VALUES ('first', 1);
		INSERT INTO t VALUES ('second', 2);
		INSERT INTO t VALUES ('third', 3);
	`)

	rows := collectRows(t, eng, "SELECT a, b FROM t ORDER BY b;")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	wantA := []string{"first", "second", "third"}
	wantB := []string{"1", "2", "3"}
	for i, row := range rows {
		if len(row) != 2 {
			t.Fatalf("row %d: expected 2 columns, got %d", i, len(row))
		}
		if row[0].Column != "a" || row[1].Column != "b" {
			t.Errorf("row %d: column order wrong: %q, %q", i, row[0].Column, row[1].Column)
		}
		if row[0].Value != wantA[i] || row[1].Value != wantB[i] {
			t.Errorf("row %d: got (%q, %q), want (%q, %q)",
				i, row[0].Value, row[1].Value, wantA[i], wantB[i])
		}
	}
}

func TestExecute_NullDistinctFromEmpty(t *testing.T) {
	eng := openTestEngine(t)

	rows := collectRows(t, eng, "SELECT NULL AS n, '' AS e, 'NULL' AS s;")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if !row[0].Null {
		t.Error("SQL NULL should scan as absent")
	}
	if row[1].Null || row[1].Value != "" {
		t.Errorf("empty string should stay present and empty: %+v", row[1])
	}
	if row[2].Null || row[2].Value != "NULL" {
		t.Errorf("the text NULL is still a value: %+v", row[2])
	}
}

func TestExecute_ErrorStopsRemainingStatements(t *testing.T) {
	eng := openTestEngine(t)

	collectRows(t, eng, "CREATE TABLE t (a INTEGER);")

	err := eng.Execute(context.Background(),
		"INSERT INTO t VALUES (1); INSERT INTO nope VALUES (2); INSERT INTO t VALUES (3);",
		func(Row) error { return nil })
	if err == nil {
		t.Fatal("referencing a missing table should fail")
	}

	rows := collectRows(t, eng, "SELECT a FROM t;")
	if len(rows) != 1 {
		t.Fatalf("statements before the failure stand, after it never run: got %d row(s)", len(rows))
	}
	if rows[0][0].Value != "1" {
		t.Errorf("surviving row wrong: %+v", rows[0])
	}
}

func TestExecute_TriggerBodyRunsAsOneStatement(t *testing.T) {
	eng := openTestEngine(t)

	collectRows(t, eng, `
		CREATE TABLE t (a INTEGER);
		CREATE TABLE log (a INTEGER);
		CREATE TRIGGER tr AFTER INSERT ON t BEGIN INSERT INTO log VALUES (new.a); END;
		INSERT INTO t VALUES (7);
	`)

	rows := collectRows(t, eng, "SELECT a FROM log;")
	if len(rows) != 1 {
		t.Fatalf("the trigger should have fired exactly once, got %d row(s)", len(rows))
	}
	if rows[0][0].Value != "7" {
		t.Errorf("the trigger should see the inserted row: %+v", rows[0])
	}
}

func TestExecute_EmitAbortsRequest(t *testing.T) {
	eng := openTestEngine(t)

	collectRows(t, eng, `
		CREATE TABLE t (a INTEGER);
		INSERT INTO t VALUES (1); INSERT INTO t VALUES (2); INSERT INTO t VALUES (3);
	`)

	abort := errors.New("stop here")
	seen := 0
	err := eng.Execute(context.Background(), "SELECT a FROM t ORDER BY a;", func(Row) error {
		seen++
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("emit's error should surface: %v", err)
	}
	if seen != 1 {
		t.Errorf("no rows should follow an aborting emit, saw %d", seen)
	}
}

func TestExecute_NoStatements(t *testing.T) {
	eng := openTestEngine(t)

	for _, text := range []string{"\n", ";\n", "-- comment only\n"} {
		emitted := false
		err := eng.Execute(context.Background(), text, func(Row) error {
			emitted = true
			return nil
		})
		if err != nil {
			t.Errorf("Execute(%q) failed: %v", text, err)
		}
		if emitted {
			t.Errorf("Execute(%q) emitted a row", text)
		}
	}
}

func TestExecute_SyntaxError(t *testing.T) {
	eng := openTestEngine(t)

	err := eng.Execute(context.Background(), "garbage;\n", func(Row) error { return nil })
	if err == nil {
		t.Fatal("nonsense text should fail")
	}
	if err.Error() == "" {
		t.Error("the failure should carry a message for the client")
	}
}

func TestExecute_ReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")

	rw, err := Open(path, false)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := rw.Execute(context.Background(),
		"CREATE TABLE t (a INTEGER); INSERT INTO t VALUES (42);",
		func(Row) error { return nil }); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	ro, err := Open(path, true)
	if err != nil {
		t.Fatalf("Failed to reopen read-only: %v", err)
	}
	defer ro.Close()

	rows := collectRows(t, ro, "SELECT a FROM t;")
	if len(rows) != 1 || rows[0][0].Value != "42" {
		t.Fatalf("reads should work in read-only mode: %+v", rows)
	}

	if err := ro.Execute(context.Background(), "INSERT INTO t VALUES (43);",
		func(Row) error { return nil }); err == nil {
		t.Error("writes should fail in read-only mode")
	}
}

func TestClose_Idempotent(t *testing.T) {
	eng, err := Open(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second Close should be harmless: %v", err)
	}
}
