// Package dynattr provides a typed, schema-driven attribute mapping layer
// between Go record values and the AWS SDK for Go v2 DynamoDB wire format.
//
// The library maps loosely typed record values onto tagged DynamoDB attribute
// values and back, validates data before it reaches the wire, and exposes
// session-scoped table and item operations with lazily paged scans and
// queries.
//
// # Key Concepts
//
// The package is built around three ideas:
//   - Attribute: a named, typed field descriptor that coerces loose input
//     into a canonical Go value, validates it, and translates it to and from
//     the tagged wire form.
//   - Schema: an ordered, immutable registration of attributes against one
//     table name. Records, wire items, key schemas and table definitions all
//     derive from it.
//   - Record: a bag of field values addressed by binding name, tracking which
//     fields changed since the record was created or loaded.
//
// There is no struct tag reflection. Schemas are declared explicitly, which
// keeps the mapping between fields and wire attributes visible at the point
// of definition.
//
// # Basic Usage
//
//	// Declare the schema once, typically at package level
//	var userSchema = dynattr.MustSchema("users",
//	    dynattr.UUID("id", dynattr.HashKey(), dynattr.WithDefaultFactory(dynattr.NewUUID)),
//	    dynattr.DateTime("created", dynattr.RangeKey(), dynattr.WithDefaultFactory(dynattr.TimeNow(dynattr.DefaultClock))),
//	    dynattr.Integer("age", dynattr.WithValidators(dynattr.Range(0, 150))),
//	    dynattr.String("email", dynattr.WithWireName("email_address")),
//	)
//
//	// Open a session over a DynamoDB client
//	session := dynattr.NewSession(dynamodb.NewFromConfig(cfg))
//	defer session.Close()
//
//	_, err := session.CreateTable(ctx, userSchema)
//	rec, err := userSchema.NewRecordFrom(map[string]any{"age": 42})
//	err = session.PutItem(ctx, rec)
//
// CreateTable describes the table first and treats an existing table as
// success, so it is safe to call on every startup. PutItem runs the record
// through the validation pipeline before anything touches the wire; pass
// WithoutClean to skip it.
//
// # Validation
//
// Cleaning coerces each field into its canonical type, substitutes declared
// defaults for nil fields, enforces NotNull, and runs the attribute's
// validators. Failures never short-circuit: every failing field is reported
// in a single *ValidationError keyed by binding name, with list elements
// keyed by decimal index:
//
//	if err := rec.Clean(); err != nil {
//	    var verr *dynattr.ValidationError
//	    if errors.As(err, &verr) {
//	        for field, ferr := range verr.Fields {
//	            log.Printf("%s: %v", field, ferr.Messages)
//	        }
//	    }
//	}
//
// # Querying
//
// Scan and Query return a Filter, an immutable builder that doubles as a
// lazy sequence. Chaining never mutates the receiver, so base filters can be
// shared and branched. Iteration fetches one page per round trip:
//
//	adults := session.Scan(userSchema).
//	    Where(expression.Name("age").GreaterThanEqual(expression.Value(18))).
//	    Limit(100)
//
//	it := adults.Iter()
//	for it.Next(ctx) {
//	    rec, err := it.Record()
//	    ...
//	}
//	err := it.Err()
//
// # Pagination
//
// Iterator.LastKey combined with MarshalCursor produces an opaque resumption
// token that survives process boundaries:
//
//	cursor, err := dynattr.MarshalCursor(it.LastKey())
//	startKey, err := dynattr.UnmarshalCursor(cursor)
//	next := session.Scan(userSchema).StartFrom(startKey)
//
// # Testing
//
// The dynamock subpackage provides a function-field mock client for unit
// tests and helpers for running against DynamoDB Local in integration tests.
package dynattr

// This file serves as the main entry point for the dynattr package.
// All core functionality is implemented in the other files in this package.
