package hk_test

import (
	"sync/atomic"
	"time"

	"github.com/bsc-ssrg/hermes/hk"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Housekeeper", func() {
	It("fires a registered callback and reschedules it", func() {
		var n int32
		hk.DefaultHK.Reg("count", func(time.Time) time.Duration {
			atomic.AddInt32(&n, 1)
			return 5 * time.Millisecond
		}, time.Millisecond)

		Eventually(func() int32 { return atomic.LoadInt32(&n) }, time.Second, time.Millisecond).Should(BeNumerically(">=", 2))
		hk.DefaultHK.Unreg("count")
	})

	It("stops rescheduling once the callback returns a non-positive delay", func() {
		var n int32
		hk.DefaultHK.Reg("once", func(time.Time) time.Duration {
			atomic.AddInt32(&n, 1)
			return 0
		}, time.Millisecond)

		Eventually(func() int32 { return atomic.LoadInt32(&n) }, time.Second, time.Millisecond).Should(Equal(int32(1)))
		Consistently(func() int32 { return atomic.LoadInt32(&n) }, 50*time.Millisecond, 5*time.Millisecond).Should(Equal(int32(1)))
	})

	It("never fires after Unreg", func() {
		var n int32
		hk.DefaultHK.Reg("cancelled", func(time.Time) time.Duration {
			atomic.AddInt32(&n, 1)
			return time.Millisecond
		}, 20*time.Millisecond)
		hk.DefaultHK.Unreg("cancelled")

		Consistently(func() int32 { return atomic.LoadInt32(&n) }, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(int32(0)))
	})
})
