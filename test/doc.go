// Package test provides infrastructure and utilities for integration testing in jobdesk.
//
// The package runs the real API client, job query controller and proposal
// sessions against an in-memory fake of the proposal backend served over
// HTTP, so request encoding, response decoding and error classification are
// exercised end to end.
//
// The package provides:
//
//   - Suite: a complete test setup with the fake backend, a real API client,
//     a file-based draft stash, an event bus and a metrics collector
//
//   - Backend: the fake proposal backend. Jobs, proposals and prompt versions
//     are seeded in memory; requests can be held back or failed per route to
//     drive ordering and error paths
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    s := test.NewSuite(t)
//	    defer s.Cleanup()
//
//	    job := s.Backend.AddJob(types.Job{})
//	    session := s.NewSession(job.ID)
//	    require.NoError(t, session.Load(s.Context()))
//	}
package test
