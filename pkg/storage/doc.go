// Package storage provides the GORM-backed persistence layer for the job
// queue.
//
// The JobRecord table is the sole coordination surface between submitters
// and workers: every process that can reach the database can participate,
// with no direct connectivity required. The Storage interface is defined in
// pkg/core and can be implemented by custom backends.
package storage
