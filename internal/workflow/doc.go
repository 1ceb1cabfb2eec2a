// Package workflow implements the Temporal workflows of the grader.
//
// Workflows only sequence activities: grading a submission, then persisting
// its report. Everything non-deterministic (invoking scoring functions,
// reading the clock, talking to Redis) happens inside activities, which are
// scheduled by name so this package never depends on their implementation.
package workflow
