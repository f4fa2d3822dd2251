package sim

import "log"

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buf Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buf Pop"}

// A Buffer is a bounded fifo queue. It remembers the most elements it ever
// held, which tells how close a port came to overflowing.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int
	Peak() int
}

// NewBuffer creates a buffer that holds up to capacity elements.
func NewBuffer(name string, capacity int) Buffer {
	NameMustBeValid(name)

	if capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &ringBuffer{
		name:  name,
		slots: make([]interface{}, capacity),
	}
}

type ringBuffer struct {
	HookableBase

	name  string
	slots []interface{}
	head  int
	size  int
	peak  int
}

func (b *ringBuffer) Name() string {
	return b.name
}

func (b *ringBuffer) CanPush() bool {
	return b.size < len(b.slots)
}

func (b *ringBuffer) Push(e interface{}) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflow", b.name)
	}

	b.slots[(b.head+b.size)%len(b.slots)] = e
	b.size++

	if b.size > b.peak {
		b.peak = b.size
	}

	b.notify(HookPosBufPush, e)
}

func (b *ringBuffer) Pop() interface{} {
	if b.size == 0 {
		return nil
	}

	e := b.slots[b.head]
	b.slots[b.head] = nil
	b.head = (b.head + 1) % len(b.slots)
	b.size--

	b.notify(HookPosBufPop, e)

	return e
}

func (b *ringBuffer) notify(pos *HookPos, e interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{Domain: b, Pos: pos, Item: e})
}

func (b *ringBuffer) Peek() interface{} {
	if b.size == 0 {
		return nil
	}

	return b.slots[b.head]
}

func (b *ringBuffer) Capacity() int {
	return len(b.slots)
}

func (b *ringBuffer) Size() int {
	return b.size
}

func (b *ringBuffer) Peak() int {
	return b.peak
}
