package tracing

import "github.com/sarchlab/mesisim/sim"

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time sim.VTimeInCycle `json:"time"`
	What string           `json:"what"`
}

// A Task is a task
type Task struct {
	ID        string           `json:"id"`
	ParentID  string           `json:"parent_id"`
	Kind      string           `json:"kind"`
	What      string           `json:"what"`
	Where     string           `json:"where"`
	StartTime sim.VTimeInCycle `json:"start_time"`
	EndTime   sim.VTimeInCycle `json:"end_time"`
	Steps     []TaskStep       `json:"steps"`
	Detail    interface{}      `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// AllTasks is a TaskFilter that accepts every task.
func AllTasks(Task) bool { return true }

// KindIs returns a TaskFilter that accepts tasks of the given kind.
func KindIs(kind string) TaskFilter {
	return func(t Task) bool { return t.Kind == kind }
}
