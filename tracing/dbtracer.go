package tracing

import (
	"sync"

	"github.com/sarchlab/mesisim/datarecording"
	"github.com/sarchlab/mesisim/sim"
)

const (
	taskTableName = "trace"
	stepTableName = "trace_steps"
)

type taskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime uint64
	EndTime   uint64
}

type stepTableEntry struct {
	TaskID string
	What   string
	Time   uint64
}

// DBTracer is a tracer that stores completed tasks into a DataRecorder.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTimeInCycle

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer and the tables it writes to.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(taskTableName, taskTableEntry{})
	dataRecorder.CreateTable(stepTableName, stepTableEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	return t
}

// SetTimeRange limits the tracer to tasks that overlap [startTime, endTime].
// A zero endTime means no upper limit.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInCycle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

// StepTask records a step of a task being traced.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tracingTasks[task.ID]; !ok {
		return
	}

	for _, step := range task.Steps {
		t.backend.InsertData(stepTableName, stepTableEntry{
			TaskID: task.ID,
			What:   step.What,
			Time:   uint64(t.timeTeller.CurrentTime()),
		})
	}
}

// EndTask marks the end of a task and writes it to the backend.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	originalTask.EndTime = t.timeTeller.CurrentTime()
	if originalTask.EndTime < t.startTime {
		return
	}

	t.backend.InsertData(taskTableName, taskTableEntry{
		ID:        originalTask.ID,
		ParentID:  originalTask.ParentID,
		Kind:      originalTask.Kind,
		What:      originalTask.What,
		Location:  originalTask.Where,
		StartTime: uint64(originalTask.StartTime),
		EndTime:   uint64(originalTask.EndTime),
	})
}

// Terminate writes everything buffered. Tasks that never ended are dropped.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
