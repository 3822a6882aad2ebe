package database

// Bucket is a class of DDL statement. Buckets run in declaration order.
type Bucket int

// Statement classes, in sync order.
const (
	BucketDropConstraint Bucket = iota
	BucketDrop
	BucketSchema
	BucketCreate
	BucketAlter

	bucketCount = iota
)

// String returns the bucket name used in logs.
func (b Bucket) String() string {
	switch b {
	case BucketDropConstraint:
		return "dropConstraint"
	case BucketDrop:
		return "drop"
	case BucketSchema:
		return "schema"
	case BucketCreate:
		return "create"
	case BucketAlter:
		return "alter"
	default:
		return "unknown"
	}
}

// Statement is one planned DDL statement.
type Statement struct {
	Schema string
	Bucket Bucket
	SQL    string
}

// bucketSet holds the five buckets of one schema.
type bucketSet [bucketCount][]string

// SchemaScript accumulates the DDL generated by table definitions and
// replays it in a dependency-safe order.
//
// Every schema name has all five buckets from the moment it is first seen.
// Buckets are append-only.
//
// Thread Safety:
//   - Not safe for concurrent use. Tables are defined once at startup.
type SchemaScript struct {
	order   []string
	buckets map[string]*bucketSet
	probes  []string
}

// NewSchemaScript returns an empty script.
func NewSchemaScript() *SchemaScript {
	return &SchemaScript{
		buckets: make(map[string]*bucketSet),
	}
}

// AddSchema registers a schema name and seeds its schema bucket with
// DROP SCHEMA IF EXISTS and CREATE SCHEMA IF NOT EXISTS. It reports whether
// the schema was new.
func (s *SchemaScript) AddSchema(name string) bool {
	if _, ok := s.buckets[name]; ok {
		return false
	}

	set := &bucketSet{}
	quoted := quoteIdent(name)
	set[BucketSchema] = []string{
		"DROP SCHEMA IF EXISTS " + quoted,
		"CREATE SCHEMA IF NOT EXISTS " + quoted,
	}

	s.buckets[name] = set
	s.order = append(s.order, name)
	return true
}

// Append adds a statement to a schema's bucket, registering the schema
// first when needed.
func (s *SchemaScript) Append(schema string, bucket Bucket, sql string) {
	s.AddSchema(schema)
	set := s.buckets[schema]
	set[bucket] = append(set[bucket], sql)
}

// AddProbe registers a verification query run by a non-altering sync.
func (s *SchemaScript) AddProbe(sql string) {
	s.probes = append(s.probes, sql)
}

// Schemas returns the schema names in registration order.
func (s *SchemaScript) Schemas() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Statements returns a copy of one bucket.
func (s *SchemaScript) Statements(schema string, bucket Bucket) []string {
	set, ok := s.buckets[schema]
	if !ok {
		return nil
	}
	out := make([]string, len(set[bucket]))
	copy(out, set[bucket])
	return out
}

// Probes returns the verification queries in registration order.
func (s *SchemaScript) Probes() []string {
	out := make([]string, len(s.probes))
	copy(out, s.probes)
	return out
}

// Plan returns every statement in execution order: statement class first
// (dropConstraint, drop, schema, create, alter), then schema in
// registration order, then statements in registration order.
//
// Every constraint is dropped before any table, across all schemas, and
// every table exists before any constraint is added.
func (s *SchemaScript) Plan() []Statement {
	var plan []Statement
	for bucket := Bucket(0); bucket < bucketCount; bucket++ {
		for _, schema := range s.order {
			for _, sql := range s.buckets[schema][bucket] {
				plan = append(plan, Statement{Schema: schema, Bucket: bucket, SQL: sql})
			}
		}
	}
	return plan
}
