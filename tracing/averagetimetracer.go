package tracing

import (
	"sync"

	"github.com/sarchlab/mesisim/sim"
)

// AverageTimeTracer collects the average time of executing a certain type of
// task.
type AverageTimeTracer struct {
	timeTeller    sim.TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	totalTime     sim.VTimeInCycle
	maxTime       sim.VTimeInCycle
	inflightTasks map[string]Task
	taskCount     uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer
func NewAverageTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	t := &AverageTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}

	return t
}

// AverageTime returns the average number of cycles spent on a task.
func (t *AverageTimeTracer) AverageTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount == 0 {
		return 0
	}

	return float64(t.totalTime) / float64(t.taskCount)
}

// MaxTime returns the longest task duration observed.
func (t *AverageTimeTracer) MaxTime() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// TotalCount returns the total number of completed tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// InflightCount returns the number of tasks started but not ended.
func (t *AverageTimeTracer) InflightCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflightTasks)
}

// StartTask records the task start time
func (t *AverageTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing
func (t *AverageTimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *AverageTimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	taskTime := task.EndTime - originalTask.StartTime
	t.totalTime += taskTime
	if taskTime > t.maxTime {
		t.maxTime = taskTime
	}

	delete(t.inflightTasks, task.ID)
	t.taskCount++
}
