/*
Package ports defines the driven ports (interfaces) of the semop runtime.

These interfaces decouple the dispatch core from handlers, text-generation
services and caches, so that each can be provided by independent packages.

# Key Interfaces

  - Handler: the capability a value type or backend implements to take part in dispatch.
  - Dispatcher: what a handler sees of the running dispatch (nested dispatch, scopes).
  - Completer: the boundary to an external text-generation service.
  - CompletionCache: storage for completer replies (memory, Redis).
*/
package ports
