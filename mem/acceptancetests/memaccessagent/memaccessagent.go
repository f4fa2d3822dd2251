// Package memaccessagent provides a processor front-end that drives a cache
// with loads and stores and checks that every access completes.
package memaccessagent

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/mesisim/mem/coherence"
	"github.com/sarchlab/mesisim/sim"
)

// Access is one scripted load or store. It is not issued before cycle
// NotBefore.
type Access struct {
	Op        coherence.AccessOp
	Addr      uint64
	NotBefore sim.VTimeInCycle
}

// A MemAccessAgent is a Component that can help testing the caches by
// generating read and write requests.
type MemAccessAgent struct {
	*sim.TickingComponent

	LowModule   sim.Port
	MaxAddress  uint64
	MaxInflight int

	WriteLeft  int
	ReadLeft   int
	Script     []Access
	PendingReq map[string]*coherence.CacheReq

	Completed    uint64
	Hits         uint64
	TotalLatency uint64

	memPort   sim.Port
	rand      *rand.Rand
	issueTime map[string]sim.VTimeInCycle
	logger    *logrus.Entry
}

// Tick updates the states of the agent and issues new read and write requests.
func (a *MemAccessAgent) Tick() bool {
	madeProgress := false

	madeProgress = a.processMsgRsp() || madeProgress

	if a.Done() || len(a.PendingReq) >= a.MaxInflight {
		return madeProgress
	}

	switch {
	case len(a.Script) > 0:
		next := a.Script[0]
		if a.CurrentTime() < next.NotBefore {
			return true
		}

		a.Script = a.Script[1:]
		a.issue(next.Op, next.Addr)
	case a.shouldRead():
		a.ReadLeft--
		a.issue(coherence.Load, a.randomAddress())
	default:
		a.WriteLeft--
		a.issue(coherence.Store, a.randomAddress())
	}

	return true
}

// Done tells if the agent has nothing left to issue.
func (a *MemAccessAgent) Done() bool {
	return a.ReadLeft == 0 && a.WriteLeft == 0 && len(a.Script) == 0
}

// AllCompleted tells if every access was issued and answered.
func (a *MemAccessAgent) AllCompleted() bool {
	return a.Done() && len(a.PendingReq) == 0
}

// MustBeComplete panics if an access is left unissued or unanswered.
func (a *MemAccessAgent) MustBeComplete() {
	if !a.Done() {
		log.Panicf("%s: %d loads, %d stores and %d scripted accesses left",
			a.Name(), a.ReadLeft, a.WriteLeft, len(a.Script))
	}

	for _, req := range a.PendingReq {
		log.Panicf("%s: access to 0x%x never completed", a.Name(), req.Addr)
	}
}

func (a *MemAccessAgent) processMsgRsp() bool {
	msg := a.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	switch msg := msg.(type) {
	case *coherence.CacheRsp:
		req, found := a.PendingReq[msg.RespondTo]
		if !found {
			log.Panicf("%s: response to unknown request %s",
				a.Name(), msg.RespondTo)
		}

		if req.Addr != msg.Addr || req.Op != msg.Op {
			log.Panicf("%s: response %v does not match request %v",
				a.Name(), msg, req)
		}

		delete(a.PendingReq, msg.RespondTo)

		a.Completed++
		a.TotalLatency += uint64(a.CurrentTime() - a.issueTime[req.ID])
		delete(a.issueTime, req.ID)

		if msg.Hit {
			a.Hits++
		}

		a.logger.WithFields(logrus.Fields{
			"addr": req.Addr,
			"op":   req.Op.String(),
			"hit":  msg.Hit,
		}).Debug("access complete")

		return true
	default:
		log.Panicf("cannot process message of type %s", reflect.TypeOf(msg))
	}

	return false
}

func (a *MemAccessAgent) shouldRead() bool {
	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rand.Float64() > 0.5
}

func (a *MemAccessAgent) randomAddress() uint64 {
	return a.rand.Uint64() % (a.MaxAddress / 4) * 4
}

func (a *MemAccessAgent) issue(op coherence.AccessOp, addr uint64) {
	req := coherence.CacheReqBuilder{}.
		WithSrc(a.memPort.AsRemote()).
		WithDst(a.LowModule.AsRemote()).
		WithAddress(addr).
		WithOp(op).
		Build()

	a.memPort.Send(req)

	a.PendingReq[req.ID] = req
	a.issueTime[req.ID] = a.CurrentTime()

	a.logger.WithFields(logrus.Fields{
		"addr": addr,
		"op":   op.String(),
	}).Debug("access")
}

// ReportStats writes the counters as "name.key value" lines.
func (a *MemAccessAgent) ReportStats(w io.Writer) {
	fmt.Fprintf(w, "%s.completed %d\n", a.Name(), a.Completed)
	fmt.Fprintf(w, "%s.hits %d\n", a.Name(), a.Hits)
	fmt.Fprintf(w, "%s.total_latency %d\n", a.Name(), a.TotalLatency)
}
