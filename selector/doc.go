// Package selector finds the interceptors that apply to a member.
//
// Records are collected from the member itself, from the owning property
// for accessors, and from the declaring type, filtered by AppliesTo against
// the member's kind, de-duplicated by interceptor type and sorted by Order.
// Before hooks run in that order; After and Exception hooks run in reverse.
package selector
