package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrIndexExists = errors.New("db: index already exists")
)

// Op names the Redis command that failed.
type Op string

// Commands the store issues.
const (
	OpCreateIndex Op = "FT.CREATE"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpDel         Op = "DEL"
	OpHGetAll     Op = "HGETALL"
	OpHSet        Op = "HSET"
	OpScan        Op = "SCAN"
	OpGet         Op = "GET"
	OpSet         Op = "SET"
)

// Error carries the failed command alongside the server or transport error.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string { return string(e.Op) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
