package dataset

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// options holds dataset construction settings.
type options struct {
	keyspace    string
	hasKeyspace bool
	creation    bool
	deletion    bool
	strict      bool
	resolver    Resolver
}

// Option configures a dataset.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		creation: true,
		deletion: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithKeyspace sets the keyspace name. The name is lower-cased.
func WithKeyspace(name string) Option {
	return func(o *options) {
		o.keyspace = normalizeKeyspace(name)
		o.hasKeyspace = o.keyspace != ""
	}
}

// WithKeyspaceCreation controls whether the keyspace is created before loading.
func WithKeyspaceCreation(create bool) Option {
	return func(o *options) { o.creation = create }
}

// WithKeyspaceDeletion controls whether the keyspace is dropped before loading.
func WithKeyspaceDeletion(drop bool) Option {
	return func(o *options) { o.deletion = drop }
}

// WithStrictLexing rejects scripts that end inside a string literal or block comment.
func WithStrictLexing() Option {
	return func(o *options) { o.strict = true }
}

// WithResolver sets the source resolver. Defaults to FileResolver.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// normalizeKeyspace lower-cases a keyspace identifier.
// A Caser is stateful, so each call gets its own.
func normalizeKeyspace(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}
