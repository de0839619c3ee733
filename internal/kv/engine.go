// Package kv defines the key/value engine contract the dog store consumes:
// hashes, sets, an atomic counter, a staged multi-command transaction and a
// server-side batch hash fetch. RedisEngine is the production implementation.
package kv

import (
	"context"
	"errors"
)

// ErrNil is returned by single-value reads when the key or member is absent
var ErrNil = errors.New("kv: nil")

// OpKind identifies a staged write command
type OpKind string

const (
	OpHSet OpKind = "hset"
	OpHDel OpKind = "hdel"
	OpSAdd OpKind = "sadd"
	OpSRem OpKind = "srem"
	OpDel  OpKind = "del"
)

// Op is one write command staged in a Transaction
type Op struct {
	Kind    OpKind
	Key     string
	Values  map[string]string // OpHSet
	Members []string          // OpHDel fields, OpSAdd/OpSRem members
}

// HSet stages field upserts on a hash
func HSet(key string, values map[string]string) Op {
	return Op{Kind: OpHSet, Key: key, Values: values}
}

// HDel stages field deletions on a hash
func HDel(key string, fields ...string) Op {
	return Op{Kind: OpHDel, Key: key, Members: fields}
}

// SAdd stages set additions
func SAdd(key string, members ...string) Op {
	return Op{Kind: OpSAdd, Key: key, Members: members}
}

// SRem stages set removals
func SRem(key string, members ...string) Op {
	return Op{Kind: OpSRem, Key: key, Members: members}
}

// Del stages a key deletion
func Del(key string) Op {
	return Op{Kind: OpDel, Key: key}
}

// OpResult reports the outcome of one staged op after Commit
type OpResult struct {
	Op  Op
	Err error
}

// Transaction stages writes and applies them as one atomic batch
type Transaction interface {
	Stage(op Op)
	Len() int
	// Commit applies every staged op and reports each outcome. The returned
	// error is non-nil if the batch failed as a whole or any op failed.
	Commit(ctx context.Context) ([]OpResult, error)
	Discard()
}

// Engine is the primitive KV contract
type Engine interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SUnion(ctx context.Context, keys ...string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
	// SRandMember returns ErrNil when the set is empty
	SRandMember(ctx context.Context, key string) (string, error)

	// SRemIfEmpty removes member from key only while guard is an empty set,
	// as one atomic step. It reports whether member was removed.
	SRemIfEmpty(ctx context.Context, guard, key, member string) (bool, error)

	Incr(ctx context.Context, key string) (int64, error)

	// Scan lists every key matching a glob pattern without blocking the
	// server. Keys written during the scan may or may not be listed.
	Scan(ctx context.Context, match string) ([]string, error)

	// FetchHashes returns HGETALL of every key in one round trip, in key order.
	// Missing keys yield empty maps.
	FetchHashes(ctx context.Context, keys []string) ([]map[string]string, error)

	Begin() Transaction

	Ping(ctx context.Context) error
	Close() error
}
