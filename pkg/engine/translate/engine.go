// Package translate defines the Engine interface for text translation
// backends.
//
// Translation failures are recoverable by contract: the pipeline falls
// back to the untranslated text rather than failing the request, so
// implementations should return errors freely instead of retrying
// internally.
//
// Implementations must be safe for concurrent use.
package translate

import "context"

// Engine is the abstraction over any translation backend.
type Engine interface {
	// Translate renders text from sourceLang into targetLang. Language
	// arguments are short codes ("en", "de"); an empty sourceLang lets the
	// backend infer the source. The caller skips translation entirely when
	// source equals target, so implementations need not special-case it.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// ModelID returns the identifier of the underlying model, used in logs
	// and diagnostics.
	ModelID() string
}
