// Package worker wires grading activities and workflows into a Temporal
// worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/workflow"
	"github.com/ahrav/go-grader/pkg/activity"
	"github.com/ahrav/go-grader/pkg/events"
)

// Registrar is the subset of a Temporal worker used for registration.
type Registrar interface {
	RegisterWorkflow(w any)
	RegisterActivity(a any)
}

var _ Registrar = (sdkworker.Worker)(nil)

// Dependencies are the collaborators the grading activities need. Sink and
// Store may be nil.
type Dependencies struct {
	Catalog *grading.Catalog
	Store   grading.ReportSaver
	Sink    events.EventSink
}

// RegisterAll registers every workflow and activity with the worker. It must
// be called once, before the worker starts.
func RegisterAll(w Registrar, deps Dependencies) *grading.Activities {
	sink := deps.Sink
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	base := activity.NewBaseActivities(sink)

	gradingActivities := grading.NewActivities(base, deps.Catalog, deps.Store)

	w.RegisterWorkflow(workflow.GradingWorkflow)

	w.RegisterActivity(gradingActivities.GradeSubmission)
	w.RegisterActivity(gradingActivities.StoreReport)

	return gradingActivities
}
