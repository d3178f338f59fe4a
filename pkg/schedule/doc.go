// Package schedule provides schedules for recurring task submissions.
//
// This package includes:
//   - Schedule interface for computing the next submission time
//   - Every() for fixed-interval schedules
//   - Daily() and Weekly() for calendar schedules
//   - Cron() for cron expression-based schedules
//
// Most users should import the root package github.com/jacksund/simmate-engine
// which re-exports these functions.
package schedule
