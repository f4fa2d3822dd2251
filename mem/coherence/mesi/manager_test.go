package mesi

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sarchlab/mesisim/mem/coherence"
)

var _ = Describe("Manager", func() {
	const self = 8

	var (
		mockCtrl  *gomock.Controller
		transport *MockManagerTransport
		m         *Manager
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		transport = NewMockManagerTransport(mockCtrl)
		m = NewManager(self, coherence.DefaultPorts, transport, nil)
		m.Bind(0x1000)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	grantTo := func(owner int) {
		transport.EXPECT().Send(sent(coherence.OpGrantEData, owner))
		m.Process(cohMsg(coherence.OpItoE, owner))
		m.Process(cohMsg(coherence.OpUnblockE, owner))
		Expect(m.State()).To(Equal(ManagerE))
	}

	shareWith := func(ids ...int) {
		grantTo(ids[0])

		transport.EXPECT().Send(forwarded(coherence.OpFwdS, ids[0], ids[1]))
		m.Process(cohMsg(coherence.OpItoS, ids[1]))
		m.Process(cohMsg(coherence.OpUnblockS, ids[1]))
		m.Process(cohMsg(coherence.OpClean, ids[0]))

		for _, id := range ids[2:] {
			transport.EXPECT().Send(sent(coherence.OpGrantSData, id))
			m.Process(cohMsg(coherence.OpItoS, id))
			m.Process(cohMsg(coherence.OpUnblockS, id))
		}

		Expect(m.State()).To(Equal(ManagerS))
	}

	Context("in I", func() {
		It("should grant E for a read", func() {
			transport.EXPECT().Send(sent(coherence.OpGrantEData, 0))

			m.Process(cohMsg(coherence.OpItoS, 0))

			Expect(m.State()).To(Equal(ManagerIE))
			Expect(m.Owner()).To(Equal(0))
			Expect(m.ReqPending()).To(BeTrue())

			m.Process(cohMsg(coherence.OpUnblockE, 0))
			Expect(m.State()).To(Equal(ManagerE))
			Expect(m.Sharers()).To(BeEmpty())
		})

		It("should ignore a stale eviction", func() {
			msg := cohMsg(coherence.OpEtoI, 0)
			transport.EXPECT().Ignore(msg)

			m.Process(msg)

			Expect(m.State()).To(Equal(ManagerI))
		})

		It("should not evict", func() {
			Expect(func() { m.Evict() }).To(beViolation())
		})
	})

	Context("in E", func() {
		BeforeEach(func() {
			grantTo(0)
		})

		It("should forward an exclusive request to the owner", func() {
			transport.EXPECT().Send(forwarded(coherence.OpFwdE, 0, 1))

			m.Process(cohMsg(coherence.OpItoE, 1))

			Expect(m.State()).To(Equal(ManagerEE))
			Expect(m.Owner()).To(Equal(1))

			m.Process(cohMsg(coherence.OpUnblockE, 1))
			Expect(m.State()).To(Equal(ManagerE))
		})

		It("should reject a request from the owner", func() {
			Expect(func() {
				m.Process(cohMsg(coherence.OpItoE, 0))
			}).To(beViolation())
		})

		It("should wait for both the unblock and the data in ES", func() {
			transport.EXPECT().Send(forwarded(coherence.OpFwdS, 0, 1))

			m.Process(cohMsg(coherence.OpItoS, 1))
			Expect(m.State()).To(Equal(ManagerES))
			Expect(m.Owner()).To(Equal(NoOwner))
			Expect(m.Sharers()).To(Equal([]int{0, 1}))

			m.Process(cohMsg(coherence.OpClean, 0))
			Expect(m.State()).To(Equal(ManagerES))

			m.Process(cohMsg(coherence.OpUnblockS, 1))
			Expect(m.State()).To(Equal(ManagerS))
		})

		It("should write back dirty data in ES", func() {
			transport.EXPECT().Send(forwarded(coherence.OpFwdS, 0, 1))
			transport.EXPECT().ClientWriteback()

			m.Process(cohMsg(coherence.OpItoS, 1))
			m.Process(cohMsg(coherence.OpUnblockS, 1))
			m.Process(cohMsg(coherence.OpWriteback, 0))

			Expect(m.State()).To(Equal(ManagerS))
		})

		It("should grant a put from the owner", func() {
			transport.EXPECT().Send(sent(coherence.OpGrantI, 0))
			transport.EXPECT().Invalidate()

			m.Process(cohMsg(coherence.OpEtoI, 0))
			Expect(m.State()).To(Equal(ManagerEIPut))

			m.Process(cohMsg(coherence.OpUnblockI, 0))
			Expect(m.State()).To(Equal(ManagerI))
			Expect(m.Owner()).To(Equal(NoOwner))
		})

		It("should write back a dirty put", func() {
			transport.EXPECT().Send(sent(coherence.OpGrantI, 0))
			transport.EXPECT().ClientWriteback()
			transport.EXPECT().Invalidate()

			m.Process(cohMsg(coherence.OpMtoI, 0))
			m.Process(cohMsg(coherence.OpUnblockIDirty, 0))

			Expect(m.State()).To(Equal(ManagerI))
		})

		It("should ignore an eviction from a former owner", func() {
			transport.EXPECT().Send(forwarded(coherence.OpFwdE, 0, 1))
			m.Process(cohMsg(coherence.OpItoE, 1))
			m.Process(cohMsg(coherence.OpUnblockE, 1))

			stale := cohMsg(coherence.OpEtoI, 0)
			transport.EXPECT().Ignore(stale)
			m.Process(stale)

			Expect(m.State()).To(Equal(ManagerE))
			Expect(m.Owner()).To(Equal(1))
		})

		It("should take the line back on eviction", func() {
			transport.EXPECT().Send(sent(coherence.OpDemandI, 0))
			transport.EXPECT().ClientWriteback()
			transport.EXPECT().Invalidate()

			m.Evict()
			Expect(m.State()).To(Equal(ManagerEIEvict))

			m.Process(cohMsg(coherence.OpUnblockIDirty, 0))
			Expect(m.State()).To(Equal(ManagerI))
		})
	})

	Context("in S", func() {
		BeforeEach(func() {
			shareWith(0, 1, 2)
		})

		It("should add a sharer", func() {
			transport.EXPECT().Send(sent(coherence.OpGrantSData, 3))

			m.Process(cohMsg(coherence.OpItoS, 3))
			Expect(m.State()).To(Equal(ManagerSS))

			m.Process(cohMsg(coherence.OpUnblockS, 3))
			Expect(m.State()).To(Equal(ManagerS))
			Expect(m.Sharers()).To(Equal([]int{0, 1, 2, 3}))
		})

		It("should invalidate the other sharers for an upgrade", func() {
			transport.EXPECT().Send(sent(coherence.OpDemandI, 0))
			transport.EXPECT().Send(sent(coherence.OpDemandI, 2))
			transport.EXPECT().Send(sent(coherence.OpGrantEData, 1)).Times(1)

			m.Process(cohMsg(coherence.OpItoE, 1))
			Expect(m.State()).To(Equal(ManagerSIE))
			Expect(m.Owner()).To(Equal(NoOwner))

			m.Process(cohMsg(coherence.OpUnblockI, 2))
			Expect(m.State()).To(Equal(ManagerSIE))

			m.Process(cohMsg(coherence.OpUnblockI, 0))
			Expect(m.State()).To(Equal(ManagerIE))
			Expect(m.Owner()).To(Equal(1))
			Expect(m.Sharers()).To(BeEmpty())

			m.Process(cohMsg(coherence.OpUnblockE, 1))
			Expect(m.State()).To(Equal(ManagerE))
		})

		It("should reject an extra invalidation ack", func() {
			transport.EXPECT().Send(gomock.Any()).Times(4)
			m.Process(cohMsg(coherence.OpItoE, 3))
			m.Process(cohMsg(coherence.OpUnblockI, 0))
			m.Process(cohMsg(coherence.OpUnblockI, 1))
			m.Process(cohMsg(coherence.OpUnblockI, 2))

			Expect(func() {
				m.Process(cohMsg(coherence.OpUnblockI, 0))
			}).To(beViolation())
		})

		It("should reject an ack from a client it did not invalidate", func() {
			transport.EXPECT().Send(sent(coherence.OpDemandI, 0))
			transport.EXPECT().Send(sent(coherence.OpDemandI, 2))
			m.Process(cohMsg(coherence.OpItoE, 1))

			m.Process(cohMsg(coherence.OpUnblockI, 0))

			Expect(func() {
				m.Process(cohMsg(coherence.OpUnblockI, 5))
			}).To(beViolation())
		})

		It("should reject an ack from the upgrading client", func() {
			transport.EXPECT().Send(sent(coherence.OpDemandI, 0))
			transport.EXPECT().Send(sent(coherence.OpDemandI, 2))
			m.Process(cohMsg(coherence.OpItoE, 1))

			Expect(func() {
				m.Process(cohMsg(coherence.OpUnblockI, 1))
			}).To(beViolation())
		})

		It("should warn and ignore an eviction", func() {
			msg := cohMsg(coherence.OpMtoI, 0)
			transport.EXPECT().Ignore(msg)

			m.Process(msg)

			Expect(m.State()).To(Equal(ManagerS))
			Expect(m.Stats().Ignored).To(Equal(uint64(1)))
		})

		It("should invalidate all sharers on eviction", func() {
			transport.EXPECT().Send(sent(coherence.OpDemandI, 0))
			transport.EXPECT().Send(sent(coherence.OpDemandI, 1))
			transport.EXPECT().Send(sent(coherence.OpDemandI, 2))
			transport.EXPECT().Invalidate()

			m.Evict()
			Expect(m.State()).To(Equal(ManagerSIEvict))

			m.Process(cohMsg(coherence.OpUnblockI, 0))
			m.Process(cohMsg(coherence.OpUnblockI, 1))
			m.Process(cohMsg(coherence.OpUnblockI, 2))
			Expect(m.State()).To(Equal(ManagerI))
		})
	})

	It("should grant at once when the requester is the only sharer", func() {
		m.state = ManagerS
		m.sharers.Add(4)
		transport.EXPECT().Send(sent(coherence.OpGrantEData, 4))

		m.Process(cohMsg(coherence.OpItoE, 4))

		Expect(m.State()).To(Equal(ManagerIE))
		Expect(m.Owner()).To(Equal(4))
	})

	It("should not demand the line from the requester", func() {
		grantTo(0)
		transport.EXPECT().Send(forwarded(coherence.OpFwdS, 0, 1))
		m.Process(cohMsg(coherence.OpItoS, 1))
		m.Process(cohMsg(coherence.OpUnblockS, 1))
		m.Process(cohMsg(coherence.OpClean, 0))

		transport.EXPECT().Send(sent(coherence.OpDemandI, 1))
		transport.EXPECT().Send(sent(coherence.OpGrantEData, 0))
		m.Process(cohMsg(coherence.OpItoE, 0))
		m.Process(cohMsg(coherence.OpUnblockI, 1))

		Expect(m.State()).To(Equal(ManagerIE))
		Expect(m.Owner()).To(Equal(0))
	})

	It("should be stable exactly when no request is pending", func() {
		for s := ManagerI; s <= ManagerSIEvict; s++ {
			m.state = s
			Expect(m.IsStable()).To(Equal(!m.ReqPending()), s.String())
		}
	})
})
