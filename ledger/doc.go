// Package ledger implements the campaign ledger state machine: an
// append-only account model whose mutations are guarded by explicit
// preconditions, modeled after an on-chain program.
//
// Each campaign (and each university performance record, and each legacy
// single-survey record) is an independently addressed account. Accounts are
// looked up through an explicit mapping table from their human-readable id
// to an opaque handle, and every account is mutated under its own lock:
// instructions on the same account serialize, instructions on different
// accounts proceed in parallel.
//
// Every guard is evaluated before any mutation. A failed precondition
// leaves the account completely unchanged; batch submissions in particular
// are all-or-nothing.
//
// # Lifecycle
//
// Campaigns move draft -> teachers_input -> open -> closed -> published.
// Submissions are accepted while the campaign is not published. Publishing
// stores the Merkle root computed off-ledger over the stored commitments,
// clears the ciphertext storage, and freezes the account.
package ledger
