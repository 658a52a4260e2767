// Package aliases maps public model aliases to upstream model
// identifiers.
//
// Clients address models by short aliases ("gpt-4o"); telemetry wants
// the fully qualified upstream identifier ("openai/gpt-4o"). The
// mapping comes from a YAML models file:
//
//	models:
//	  - alias: gpt-4o
//	    provider: openai
//	    model: gpt-4o
//	  - alias: sonnet
//	    provider: anthropic
//	    model: claude-sonnet-4-5
//
// # Components
//
//   - Lookup: the immutable alias → upstream-model map built from the
//     file, providers normalized to a lower-case prefix
//   - Store: holds the current Lookup behind a lock so it can be
//     swapped at runtime without disturbing readers
//   - Watcher: reloads the models file on change (fsnotify with a
//     debounce window) and swaps the Store's lookup
//
// Unknown aliases resolve to themselves, so a request naming a model
// nobody configured still produces telemetry under that literal name.
//
// # Usage
//
//	lookup, err := aliases.LoadFile("models.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	store := aliases.NewStore(lookup)
//
//	upstream := store.Resolve("gpt-4o") // "openai/gpt-4o"
package aliases
