/*
Package domain contains the core models of the semop dispatch runtime.

It defines the canonical shape of an operation call, the tagged result a handler
returns, the audit trail every plan carries, and the context entries that scoped
blocks make visible to handlers. This package is kept pure and free of I/O,
following the same hexagonal split as the rest of the module.

# Key Entities

  - Operator: identity of an abstract operation plus its argument preprocessor.
  - Request: immutable, normalized description of one operator call.
  - Outcome: what a handler did with a request (Declined, Continue or Final).
  - Plan: deferred, inspectable unit of work with an audit trail of signs.
  - Entry: a context annotation (text, role, exemplar, strategy or guard).
*/
package domain
