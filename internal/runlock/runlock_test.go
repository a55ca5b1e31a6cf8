package runlock_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
)

var _ = Describe("RedisLocker", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.Client
		locker runlock.Locker
		key    string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		locker = runlock.NewRedisLocker(client, time.Minute)
		key = runlock.Key("acme/widgets", "SEC")
	})

	It("builds keys per repository and project", func() {
		Expect(key).To(Equal("ghas-sync:lock:acme/widgets:SEC"))
	})

	It("refuses a second holder until released", func() {
		release, err := locker.Acquire(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(mr.Exists(key)).To(BeTrue())
		Expect(mr.TTL(key)).To(Equal(time.Minute))

		_, err = locker.Acquire(ctx, key)
		Expect(err).To(MatchError(runlock.ErrLocked))

		Expect(release(ctx)).To(Succeed())
		Expect(mr.Exists(key)).To(BeFalse())

		release, err = locker.Acquire(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(release(ctx)).To(Succeed())
	})

	It("does not delete a lock taken over after expiry", func() {
		release, err := locker.Acquire(ctx, key)
		Expect(err).NotTo(HaveOccurred())

		mr.FastForward(2 * time.Minute)
		Expect(mr.Exists(key)).To(BeFalse())

		releaseOther, err := locker.Acquire(ctx, key)
		Expect(err).NotTo(HaveOccurred())

		Expect(release(ctx)).To(Succeed())
		Expect(mr.Exists(key)).To(BeTrue())

		Expect(releaseOther(ctx)).To(Succeed())
		Expect(mr.Exists(key)).To(BeFalse())
	})

	It("keeps extending the ttl while held", func() {
		locker = runlock.NewRedisLocker(client, 300*time.Millisecond)
		release, err := locker.Acquire(ctx, key)
		Expect(err).NotTo(HaveOccurred())

		mr.FastForward(250 * time.Millisecond)
		Expect(mr.TTL(key)).To(BeNumerically("<", 100*time.Millisecond))

		Eventually(func() time.Duration { return mr.TTL(key) }).
			WithTimeout(2 * time.Second).
			Should(Equal(300 * time.Millisecond))

		Expect(release(ctx)).To(Succeed())
		Expect(mr.Exists(key)).To(BeFalse())
		Consistently(func() bool { return mr.Exists(key) }).
			WithTimeout(400 * time.Millisecond).
			Should(BeFalse())
	})

	It("stops extending once the key belongs to someone else", func() {
		locker = runlock.NewRedisLocker(client, 300*time.Millisecond)
		release, err := locker.Acquire(ctx, key)
		Expect(err).NotTo(HaveOccurred())

		Expect(mr.Set(key, "other-holder")).To(Succeed())
		mr.SetTTL(key, time.Minute)

		Consistently(func() time.Duration { return mr.TTL(key) }).
			WithTimeout(400 * time.Millisecond).
			Should(Equal(time.Minute))

		Expect(release(ctx)).To(Succeed())
		Expect(mr.Exists(key)).To(BeTrue())
	})

	It("surfaces connection failures", func() {
		mr.Close()

		_, err := locker.Acquire(ctx, key)
		Expect(err).To(HaveOccurred())
		Expect(err).NotTo(MatchError(runlock.ErrLocked))
	})
})

var _ = Describe("NoopLocker", func() {
	It("always grants the lock", func() {
		locker := runlock.NewNoopLocker()
		for range 2 {
			release, err := locker.Acquire(context.Background(), "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(release(context.Background())).To(Succeed())
		}
	})
})
