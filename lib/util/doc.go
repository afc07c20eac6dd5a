// Package util provides low-level building blocks shared by the jsonq packages.
//
// The package contains:
//   - mpsc: An unbounded lock-free Multi-Producer Single-Consumer (MPSC) queue that feeds the scheduler worker
//   - ids: The unique id generator used for future identities and generated document ids
package util
