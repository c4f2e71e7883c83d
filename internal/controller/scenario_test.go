package controller

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"

	"github.com/imamik/proxysync/internal/classifier"
	"github.com/imamik/proxysync/internal/observation"
	"github.com/imamik/proxysync/internal/probe"
	"github.com/imamik/proxysync/internal/util/retry"
)

var _ = Describe("Reconciler", func() {
	var (
		ctx    context.Context
		syncer *MockSyncer
		prober *MockProber
		r      *Reconciler
	)

	handle := func(obs observation.Observation) {
		GinkgoHelper()
		Expect(r.Handle(ctx, obs)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		syncer = newMockSyncer()
		prober = &MockProber{}

		c, err := classifier.New(classifier.Config{
			ProxyPodName:        "httpd",
			ProxyContainerName:  "httpd",
			BackendImagePattern: "tomcat:.*",
			BackendLabels:       backendLabels,
		})
		Expect(err).NotTo(HaveOccurred())

		r, err = NewReconciler(c, prober, syncer,
			WithMetrics(false),
			WithRetryOptions(retry.WithMaxRetries(0)))
		Expect(err).NotTo(HaveOccurred())
	})

	Context("when the proxy is online", func() {
		BeforeEach(func() {
			handle(added(proxyPod().Ready().Build()))
			Expect(r.Registry().ProxyOnline()).To(BeTrue())
			syncer.ResetCalls()
		})

		It("registers a backend once it is ready and responding", func() {
			p1 := backendPod("p1", "10.0.0.5")

			By("ignoring the pending pod")
			handle(added(p1.WithIP("").Build()))
			handle(modified(p1.NotReady().Build()))
			Expect(r.Registry().Len()).To(BeZero())
			Expect(prober.CallCount()).To(BeZero())

			By("registering it when ready")
			handle(modified(p1.Ready().Build()))
			Expect(syncer.Members()).To(ConsistOf("10.0.0.5:8080"))
			Expect(syncer.ReloadCalls).To(Equal(1))

			By("ignoring further ready observations")
			handle(modified(p1.Ready().Build()))
			Expect(syncer.Mutations()).To(Equal(1))
			Expect(syncer.ReloadCalls).To(Equal(1))
		})

		It("removes only the backend that went away", func() {
			for _, pod := range []*corev1.Pod{
				backendPod("p1", "10.0.0.5").Ready().Build(),
				backendPod("p2", "10.0.0.6").Ready().Build(),
				backendPod("p3", "10.0.0.7").Ready().Build(),
			} {
				handle(added(pod))
			}
			Expect(syncer.Members()).To(HaveLen(3))

			handle(modified(backendPod("p2", "10.0.0.6").Ready().Terminating().Build()))

			Expect(syncer.RemoveMemberCalls).To(Equal([]string{"10.0.0.6:8080"}))
			Expect(syncer.Members()).To(ConsistOf("10.0.0.5:8080", "10.0.0.7:8080"))
			Expect(r.Registry().Len()).To(Equal(2))
		})

		It("does not register a backend that never answers", func() {
			prober.ProbeFunc = func(context.Context, string, int32) probe.Result {
				return probe.Result{Attempts: 10, LastStatus: 503}
			}

			handle(added(backendPod("p1", "10.0.0.5").Ready().Build()))

			Expect(r.Registry().Len()).To(BeZero())
			Expect(syncer.Mutations()).To(BeZero())
		})

		It("keeps the backend tracked when the reload fails", func() {
			syncer.ReloadFunc = func(context.Context) error { return errors.New("graceful restart failed") }

			Expect(r.Handle(ctx, added(backendPod("p1", "10.0.0.5").Ready().Build()))).NotTo(Succeed())
			Expect(r.Registry().Len()).To(Equal(1))
			Expect(syncer.Members()).To(ConsistOf("10.0.0.5:8080"))

			syncer.ReloadFunc = nil
			handle(added(backendPod("p2", "10.0.0.6").Ready().Build()))
			Expect(syncer.ReloadCalls).To(Equal(2))
			Expect(r.pendingReload).To(BeFalse())
		})
	})

	Context("when the proxy is offline", func() {
		It("tracks backends locally and restores them on resync", func() {
			handle(added(backendPod("p1", "10.0.0.5").Ready().Build()))
			handle(added(backendPod("p2", "10.0.0.6").Ready().Build()))
			Expect(syncer.Mutations()).To(BeZero())
			Expect(syncer.ExistsCalls).To(BeEmpty())

			handle(added(proxyPod().NotReady().Build()))
			Expect(r.Registry().ProxyOnline()).To(BeFalse())

			handle(modified(proxyPod().Ready().Build()))
			Expect(r.Registry().ProxyOnline()).To(BeTrue())
			Expect(syncer.AddMemberCalls).To(ConsistOf("10.0.0.5:8080", "10.0.0.6:8080"))
			Expect(syncer.ReloadCalls).To(Equal(1))
		})

		It("drops backends that go away without touching the proxy", func() {
			p1 := backendPod("p1", "10.0.0.5")
			handle(added(p1.Ready().Build()))
			handle(modified(p1.Stopped().Build()))

			Expect(r.Registry().Len()).To(BeZero())
			Expect(syncer.Mutations()).To(BeZero())
			Expect(syncer.ReloadCalls).To(BeZero())
		})
	})

	Context("when the proxy goes away", func() {
		It("keeps every backend for the next resync", func() {
			handle(added(proxyPod().Ready().Build()))
			handle(added(backendPod("p1", "10.0.0.5").Ready().Build()))
			syncer.ResetCalls()

			handle(modified(proxyPod().Ready().Terminating().Build()))
			handle(deleted(proxyPod().Stopped().Terminating().Build()))

			Expect(r.Registry().ProxyOnline()).To(BeFalse())
			Expect(r.Registry().Len()).To(Equal(1))
			Expect(syncer.Mutations()).To(BeZero())

			handle(added(proxyPod().WithUID("httpd-2").Ready().Build()))
			Expect(r.Registry().ProxyOnline()).To(BeTrue())
			Expect(syncer.AddMemberCalls).To(BeEmpty())
			Expect(syncer.ReloadCalls).To(BeZero())
		})
	})
})
