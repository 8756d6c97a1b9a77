// Package tasks defines the execution backend consumed by the run engine.
// Sub-tasks are looked up by explicit kind, never discovered by introspection,
// and every sub-task returns plain text.
package tasks

import "context"

// Kind names a sub-task slot in the backend.
type Kind string

const (
	KindSearch    Kind = "search"
	KindRecommend Kind = "recommend"
	KindFeedback  Kind = "feedback"
)

// Inputs carries the union of sub-task parameters. Each sub-task reads only
// the fields relevant to it.
type Inputs struct {
	Location                string
	RestaurantData          string
	Feedback                string
	PreviousRecommendations string
}

// Task is one sub-task of the execution backend.
type Task interface {
	Run(ctx context.Context, in Inputs) (string, error)
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func(ctx context.Context, in Inputs) (string, error)

func (f TaskFunc) Run(ctx context.Context, in Inputs) (string, error) { return f(ctx, in) }

// Registry maps kinds to sub-tasks.
type Registry struct {
	tasks map[Kind]Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[Kind]Task)}
}

func (r *Registry) Register(kind Kind, t Task) {
	r.tasks[kind] = t
}

func (r *Registry) Get(kind Kind) (Task, bool) {
	t, ok := r.tasks[kind]
	return t, ok
}
