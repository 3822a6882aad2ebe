package database

import (
	"reflect"
	"testing"
)

func TestSchemaScript_AddSchema(t *testing.T) {
	s := NewSchemaScript()

	if !s.AddSchema("app") {
		t.Fatal("AddSchema(app) = false on first call")
	}
	if s.AddSchema("app") {
		t.Error("AddSchema(app) = true on second call")
	}

	want := []string{`DROP SCHEMA IF EXISTS "app"`, `CREATE SCHEMA IF NOT EXISTS "app"`}
	if got := s.Statements("app", BucketSchema); !reflect.DeepEqual(got, want) {
		t.Errorf("schema bucket = %v, want %v", got, want)
	}

	// All five buckets exist, empty except schema.
	for _, b := range []Bucket{BucketDropConstraint, BucketDrop, BucketCreate, BucketAlter} {
		if got := s.Statements("app", b); got == nil || len(got) != 0 {
			t.Errorf("bucket %s = %#v, want empty non-nil", b, got)
		}
	}
}

func TestSchemaScript_AppendRegistersSchema(t *testing.T) {
	s := NewSchemaScript()
	s.Append("audit", BucketCreate, "CREATE TABLE x")

	if got := s.Schemas(); !reflect.DeepEqual(got, []string{"audit"}) {
		t.Errorf("Schemas() = %v", got)
	}
	if got := s.Statements("audit", BucketSchema); len(got) != 2 {
		t.Errorf("schema bucket has %d statements, want 2", len(got))
	}
}

func TestSchemaScript_StatementsUnknownSchema(t *testing.T) {
	s := NewSchemaScript()
	if got := s.Statements("nope", BucketDrop); got != nil {
		t.Errorf("Statements(unknown) = %v, want nil", got)
	}
}

func TestSchemaScript_PlanOrder(t *testing.T) {
	s := NewSchemaScript()
	s.Append("a", BucketAlter, "a-alter")
	s.Append("a", BucketCreate, "a-create-1")
	s.Append("a", BucketDrop, "a-drop")
	s.Append("b", BucketDropConstraint, "b-dropc")
	s.Append("b", BucketCreate, "b-create")
	s.Append("a", BucketCreate, "a-create-2")
	s.Append("b", BucketAlter, "b-alter")

	var got []string
	for _, st := range s.Plan() {
		got = append(got, st.SQL)
	}

	want := []string{
		"b-dropc",
		"a-drop",
		`DROP SCHEMA IF EXISTS "a"`, `CREATE SCHEMA IF NOT EXISTS "a"`,
		`DROP SCHEMA IF EXISTS "b"`, `CREATE SCHEMA IF NOT EXISTS "b"`,
		"a-create-1", "a-create-2",
		"b-create",
		"a-alter",
		"b-alter",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Plan()\n got: %v\nwant: %v", got, want)
	}
}

func TestSchemaScript_PlanBucketsNonDecreasing(t *testing.T) {
	s := NewSchemaScript()
	s.Append("x", BucketAlter, "1")
	s.Append("y", BucketDropConstraint, "2")
	s.Append("x", BucketDrop, "3")
	s.Append("y", BucketCreate, "4")

	plan := s.Plan()
	for i := 1; i < len(plan); i++ {
		if plan[i].Bucket < plan[i-1].Bucket {
			t.Fatalf("statement %d (%s) follows %s", i, plan[i].Bucket, plan[i-1].Bucket)
		}
	}
}

func TestSchemaScript_Probes(t *testing.T) {
	s := NewSchemaScript()
	s.AddProbe("SELECT 1")
	s.AddProbe("SELECT 2")

	probes := s.Probes()
	if !reflect.DeepEqual(probes, []string{"SELECT 1", "SELECT 2"}) {
		t.Errorf("Probes() = %v", probes)
	}

	probes[0] = "mutated"
	if s.Probes()[0] != "SELECT 1" {
		t.Error("Probes() returned internal slice")
	}
}

func TestBucket_String(t *testing.T) {
	names := map[Bucket]string{
		BucketDropConstraint: "dropConstraint",
		BucketDrop:           "drop",
		BucketSchema:         "schema",
		BucketCreate:         "create",
		BucketAlter:          "alter",
		Bucket(99):           "unknown",
	}
	for b, want := range names {
		if got := b.String(); got != want {
			t.Errorf("Bucket(%d).String() = %q, want %q", int(b), got, want)
		}
	}
}
