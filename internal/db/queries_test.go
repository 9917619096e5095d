package db

import (
	"testing"
)

func TestGet_Missing(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	value, ok, err := Get(db, "token")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || value != "" {
		t.Errorf("Get() = (%q, %v), want (\"\", false)", value, ok)
	}
}

func TestSetManyAndGet(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if err := SetMany(db, map[string]string{"token": "abc", "user": `{"username":"ana"}`}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	value, ok, err := Get(db, "token")
	if err != nil || !ok || value != "abc" {
		t.Errorf("Get(token) = (%q, %v, %v), want abc", value, ok, err)
	}

	// Overwrite
	if err := SetMany(db, map[string]string{"token": "def"}); err != nil {
		t.Fatalf("SetMany() overwrite error = %v", err)
	}
	value, _, _ = Get(db, "token")
	if value != "def" {
		t.Errorf("Get(token) after overwrite = %q, want def", value)
	}
	value, _, _ = Get(db, "user")
	if value != `{"username":"ana"}` {
		t.Errorf("Get(user) = %q, want untouched", value)
	}
}

func TestDeleteMany(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if err := SetMany(db, map[string]string{"token": "abc", "user": "u", "other": "x"}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}
	if err := DeleteMany(db, "token", "user", "never-set"); err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}

	for _, k := range []string{"token", "user"} {
		if _, ok, _ := Get(db, k); ok {
			t.Errorf("key %s still present after DeleteMany", k)
		}
	}
	if _, ok, _ := Get(db, "other"); !ok {
		t.Error("unrelated key was deleted")
	}
}

func TestDeleteMany_ClosedDB(t *testing.T) {
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	db.Close()

	if err := DeleteMany(db, "token"); err == nil {
		t.Error("DeleteMany() on closed db should fail")
	}
}
