package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal/core/events"
)

var _ = Describe("EventBus", func() {
	var (
		bus *events.EventBus
		ctx context.Context
	)

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	It("delivers published events to every subscriber of the type", func() {
		var (
			mu   sync.Mutex
			seen []string
		)
		record := func(name string) events.Handler {
			return func(_ context.Context, e events.Event) error {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, name+":"+e.EventType())
				return nil
			}
		}
		bus.Subscribe(events.EventTypeUserCreated, record("a"))
		bus.Subscribe(events.EventTypeUserCreated, record("b"))
		bus.Subscribe(events.EventTypePasswordChanged, record("c"))

		Expect(bus.Publish(ctx, events.NewUserCreatedEvent("u1", "a@b.co", "Alice"))).To(Succeed())
		bus.Wait()

		Expect(seen).To(ConsistOf("a:user.created", "b:user.created"))
	})

	It("ignores events with no subscribers", func() {
		Expect(bus.Publish(ctx, events.NewPasswordChangedEvent("u1", "reset"))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewPasswordChangedEvent("u1", "reset"))).To(Succeed())
		bus.Wait()
	})

	It("keeps handler errors away from asynchronous publishers", func() {
		bus.Subscribe(events.EventTypeUserCreated, func(context.Context, events.Event) error {
			return errors.New("boom")
		})

		Expect(bus.Publish(ctx, events.NewUserCreatedEvent("u1", "a@b.co", "Alice"))).To(Succeed())
		bus.Wait()
	})

	It("hands handlers a context that survives cancellation of the publisher", func() {
		var handlerErr error
		bus.Subscribe(events.EventTypeUserCreated, func(hctx context.Context, _ events.Event) error {
			handlerErr = hctx.Err()
			return nil
		})

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		Expect(bus.Publish(cctx, events.NewUserCreatedEvent("u1", "a@b.co", "Alice"))).To(Succeed())
		bus.Wait()

		Expect(handlerErr).NotTo(HaveOccurred())
	})

	It("stops at the first failing handler when publishing synchronously", func() {
		boom := errors.New("boom")
		calls := 0
		bus.Subscribe(events.EventTypePasswordChanged, func(context.Context, events.Event) error {
			calls++
			return boom
		})
		bus.Subscribe(events.EventTypePasswordChanged, func(context.Context, events.Event) error {
			calls++
			return nil
		})

		err := bus.PublishSync(ctx, events.NewPasswordChangedEvent("u1", "reset"))
		Expect(err).To(MatchError(boom))
		Expect(err.Error()).To(ContainSubstring("user.password_changed"))
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("user events", func() {
	It("carries the payload in both typed fields and data", func() {
		e := events.NewUserCreatedEvent("u1", "a@b.co", "Alice")
		Expect(e.EventID()).NotTo(BeEmpty())
		Expect(e.OccurredAt()).NotTo(BeZero())
		Expect(e.FirstName).To(Equal("Alice"))
		Expect(e.Payload()).To(HaveKeyWithValue("email", "a@b.co"))

		p := events.NewPasswordChangedEvent("u2", "reset")
		Expect(p.EventType()).To(Equal(events.EventTypePasswordChanged))
		Expect(p.Payload()).To(HaveKeyWithValue("reason", "reset"))
	})
})
