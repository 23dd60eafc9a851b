// Package queue manages background sticker generation jobs, their queuing,
// batched processing, and lifecycle. It keeps job state in memory as the
// source of truth, mirrors every transition to Postgres and Redis on a
// best-effort basis, and recovers unfinished work from the mirror after an
// application restart.
package queue
