package dynattr

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type filterOp int

const (
	opScan filterOp = iota
	opQuery
)

// Filter is an immutable scan or query request builder that doubles as a lazy
// sequence of matching items. Every chainable method returns a copy and never
// modifies its receiver, so a base filter can be shared and branched safely.
// Nothing reaches the transport until Iter, Count, First or Records runs.
type Filter struct {
	session    *Session
	schema     *Schema
	op         filterOp
	limit      *int32
	consistent *bool
	hashValue  any
	hasHash    bool
	rangeCond  expression.KeyConditionBuilder
	where      expression.ConditionBuilder
	descending bool
	startKey   Item
}

// Limit caps the number of items the remote store evaluates per request.
func (f Filter) Limit(n int32) Filter {
	f.limit = aws.Int32(n)
	return f
}

// Consistent toggles strongly consistent reads.
func (f Filter) Consistent(read bool) Filter {
	f.consistent = aws.Bool(read)
	return f
}

// Key sets the query's hash key condition to equal value. The value coerces
// through the schema's hash attribute, so loose types address the same items
// a cleaned record would. Scans ignore it.
func (f Filter) Key(hash any) Filter {
	f.hashValue = hash
	f.hasHash = true
	return f
}

// RangeCondition adds a sort key condition to a query, built with the SDK
// expression package:
//
//	filter.RangeCondition(expression.Key("created").GreaterThanEqual(expression.Value(since)))
func (f Filter) RangeCondition(cond expression.KeyConditionBuilder) Filter {
	f.rangeCond = cond
	return f
}

// Where adds a filter condition applied by the remote store after key
// matching. Filtered-out items still consume read capacity.
func (f Filter) Where(cond expression.ConditionBuilder) Filter {
	f.where = cond
	return f
}

// Descending reverses the sort order of query results.
func (f Filter) Descending() Filter {
	f.descending = true
	return f
}

// StartFrom resumes iteration after the given exclusive start key, usually
// obtained from Iterator.LastKey or UnmarshalCursor.
func (f Filter) StartFrom(key Item) Filter {
	f.startKey = key
	return f
}

func (f Filter) buildScan(count bool) (*dynamodb.ScanInput, error) {
	input := &dynamodb.ScanInput{
		TableName:         aws.String(f.schema.TableName()),
		Limit:             f.limit,
		ConsistentRead:    f.consistent,
		ExclusiveStartKey: f.startKey,
	}
	if f.where.IsSet() {
		expr, err := expression.NewBuilder().WithFilter(f.where).Build()
		if err != nil {
			return nil, fmt.Errorf("dynattr: failed to build expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if count {
		input.Select = types.SelectCount
	}
	return input, nil
}

func (f Filter) buildQuery(count bool) (*dynamodb.QueryInput, error) {
	if !f.hasHash {
		return nil, fmt.Errorf("dynattr: query requires a hash key value, use Filter.Key")
	}
	hashAttr := f.schema.KeyAttribute(KeyRoleHash)
	if hashAttr == nil {
		return nil, fmt.Errorf("schema %s has no hash key attribute: %w", f.schema.TableName(), ErrInvalidKey)
	}
	hashValue, err := hashAttr.ToWire(f.hashValue)
	if err != nil {
		return nil, err
	}
	keyCondition := expression.Key(hashAttr.Name()).Equal(expression.Value(hashValue))
	if f.rangeCond.IsSet() {
		keyCondition = keyCondition.And(f.rangeCond)
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCondition)
	if f.where.IsSet() {
		builder = builder.WithFilter(f.where)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("dynattr: failed to build expression: %w", err)
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(f.schema.TableName()),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!f.descending),
		Limit:                     f.limit,
		ConsistentRead:            f.consistent,
		ExclusiveStartKey:         f.startKey,
	}
	if f.where.IsSet() {
		input.FilterExpression = expr.Filter()
	}
	if count {
		input.Select = types.SelectCount
	}
	return input, nil
}

// pageFetcher unifies the scan and query paginators behind one page-at-a-time
// surface.
type pageFetcher interface {
	hasMore() bool
	next(ctx context.Context) ([]Item, int32, Item, error)
}

type scanPages struct {
	p *dynamodb.ScanPaginator
}

func (s scanPages) hasMore() bool { return s.p.HasMorePages() }

func (s scanPages) next(ctx context.Context) ([]Item, int32, Item, error) {
	out, err := s.p.NextPage(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	return out.Items, out.Count, out.LastEvaluatedKey, nil
}

type queryPages struct {
	p *dynamodb.QueryPaginator
}

func (q queryPages) hasMore() bool { return q.p.HasMorePages() }

func (q queryPages) next(ctx context.Context) ([]Item, int32, Item, error) {
	out, err := q.p.NextPage(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	return out.Items, out.Count, out.LastEvaluatedKey, nil
}

func (f Filter) pages(count bool) (pageFetcher, error) {
	if f.session == nil || f.schema == nil {
		return nil, ErrNoSchema
	}
	client, err := f.session.active()
	if err != nil {
		return nil, err
	}
	switch f.op {
	case opQuery:
		input, err := f.buildQuery(count)
		if err != nil {
			return nil, err
		}
		return queryPages{p: dynamodb.NewQueryPaginator(client, input)}, nil
	default:
		input, err := f.buildScan(count)
		if err != nil {
			return nil, err
		}
		return scanPages{p: dynamodb.NewScanPaginator(client, input)}, nil
	}
}

// Iter begins a lazy iteration over the filter's result set, fetching one
// page per transport round trip. An exhausted iterator stays exhausted;
// calling Iter again re-issues the request from the start.
func (f Filter) Iter() *Iterator {
	return &Iterator{filter: f}
}

// Count executes the filter in count-only mode and returns the total number
// of matching items across every page. No item payloads travel on the wire.
func (f Filter) Count(ctx context.Context) (int, error) {
	pages, err := f.pages(true)
	if err != nil {
		return 0, err
	}
	total := 0
	for pages.hasMore() {
		_, count, _, err := pages.next(ctx)
		if err != nil {
			return 0, translateError(err, f.schema.TableName())
		}
		total += int(count)
	}
	return total, nil
}

// First returns the first matching record, or ErrItemNotFound when the
// result set is empty.
func (f Filter) First(ctx context.Context) (*Record, error) {
	it := f.Limit(1).Iter()
	if !it.Next(ctx) {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, ErrItemNotFound
	}
	return it.Record()
}

// Records drains the filter and decodes every item. Prefer Iter for result
// sets that may not fit in memory.
func (f Filter) Records(ctx context.Context) ([]*Record, error) {
	var out []*Record
	it := f.Iter()
	for it.Next(ctx) {
		rec, err := it.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Iterator walks a filter's result set item by item.
type Iterator struct {
	filter  Filter
	fetcher pageFetcher
	page    []Item
	idx     int
	current Item
	onItem  bool
	lastKey Item
	done    bool
	err     error
}

// Next advances to the next item, fetching pages as needed. It returns false
// once the result set is exhausted or an error occurs; consult Err after a
// false return.
func (it *Iterator) Next(ctx context.Context) bool {
	it.onItem = false
	if it.done || it.err != nil {
		return false
	}
	if it.fetcher == nil {
		fetcher, err := it.filter.pages(false)
		if err != nil {
			it.err = err
			it.done = true
			return false
		}
		it.fetcher = fetcher
	}
	for it.idx >= len(it.page) {
		if !it.fetcher.hasMore() {
			it.done = true
			return false
		}
		items, _, lastKey, err := it.fetcher.next(ctx)
		if err != nil {
			it.err = translateError(err, it.filter.schema.TableName())
			it.done = true
			return false
		}
		it.page = items
		it.idx = 0
		it.lastKey = lastKey
	}
	it.current = it.page[it.idx]
	it.idx++
	it.onItem = true
	return true
}

// Item returns the wire item at the iterator's current position, or nil when
// the iterator is not positioned on an item.
func (it *Iterator) Item() Item {
	if !it.onItem {
		return nil
	}
	return it.current
}

// Record decodes the current item through the filter's schema. It fails when
// the most recent Next did not return true.
func (it *Iterator) Record() (*Record, error) {
	if it.filter.schema == nil {
		return nil, ErrNoSchema
	}
	if !it.onItem {
		return nil, fmt.Errorf("dynattr: iterator is not positioned on an item, call Next first")
	}
	return it.filter.schema.UnmarshalItem(it.current)
}

// Err returns the first error encountered while iterating.
func (it *Iterator) Err() error { return it.err }

// LastKey returns the exclusive start key that resumes iteration after the
// most recently fetched page, for use with Filter.StartFrom or MarshalCursor.
// It is nil once the final page has been read.
func (it *Iterator) LastKey() Item { return it.lastKey }
