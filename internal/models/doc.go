// Package models defines the core domain models for Daretna.
//
// # Core Models
//
// The rotation-and-payment lifecycle revolves around three models:
//   - DaretGroup: A rotating-savings group ("daret") and its payout rotation
//   - Membership: One user's place inside a group (role, turn, payment state)
//   - User: A registered or invited participant with a payment history
//
// A DaretGroup owns its Memberships; a Membership is never referenced outside
// its parent group. Users are stored independently and referenced by ID.
//
// # Peripheral Models
//
// Group chat, voting and notifications ride alongside the core:
//   - GroupMessage: Chat message inside a group (user or system authored)
//   - VoteSession: An in-group poll with single-vote-per-member semantics
//   - Notification: A per-user reminder/alert produced by the engine
//   - Contribution: Ledger entry for one settled payment in one cycle
//
// # Design Principles
//
//  1. **Engine-owned mutation**: group and membership state only change through
//     the lifecycle engine; models carry no behavior beyond small helpers.
//  2. **Avoid circular references**: relationships use ID strings, not pointers.
//  3. **Tagged users**: invited-but-unregistered participants are a variant of
//     User (KindInvited), not a fabricated record, so a later claim/merge
//     operation stays type-safe.
package models
