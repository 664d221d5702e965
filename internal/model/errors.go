package model

import "errors"

var (
	// ErrConfiguration marks invalid caller input: unknown corpus, malformed simple
	// response entries, impossible limits. Fatal to the call, never to the process.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmptyCorpus is returned when generation is asked to walk a corpus with no keys.
	ErrEmptyCorpus = errors.New("corpus is empty")

	// ErrGenerationExhausted is returned after every generation attempt failed.
	ErrGenerationExhausted = errors.New("generation exhausted")

	// ErrTransient wraps publish, reply and lookup failures from the feed.
	ErrTransient = errors.New("transient transport error")

	// ErrStreamInterrupted signals that a stream ended or hung up and should be reopened.
	ErrStreamInterrupted = errors.New("stream interrupted")

	// ErrNotFound is returned by item lookups for unknown ids.
	ErrNotFound = errors.New("not found")

	// ErrAuth is returned when credentials are rejected.
	ErrAuth = errors.New("authentication failed")

	// ErrNotLoggedIn is returned by session operations before a successful login.
	ErrNotLoggedIn = errors.New("not logged in")
)
