package mailer_test

import (
	"context"
	"io"
	"log/slog"

	smtpmock "github.com/mocktools/go-smtp-mock/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/rbac-api/internal"
	"github.com/frahmantamala/rbac-api/internal/mailer"
)

var _ = Describe("Senders", func() {
	Describe("SMTPSender", func() {
		var (
			server *smtpmock.Server
			sender *mailer.SMTPSender
		)

		BeforeEach(func() {
			server = smtpmock.New(smtpmock.ConfigurationAttr{HostAddress: "127.0.0.1"})
			Expect(server.Start()).To(Succeed())
			DeferCleanup(func() { _ = server.Stop() })

			sender = mailer.NewSMTPSender(internal.SMTPConfig{
				Host: "127.0.0.1",
				Port: server.PortNumber(),
				From: "no-reply@example.com",
			})
		})

		It("delivers a plain text message through the relay", func() {
			err := sender.Send(context.Background(), mailer.Message{
				To:      "alice@example.com",
				Subject: "Password reset",
				Body:    "Your code is 123456",
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(server.Messages).Should(HaveLen(1))
			msg := server.Messages()[0]
			Expect(msg.MailfromRequest()).To(ContainSubstring("no-reply@example.com"))
			Expect(msg.MsgRequest()).To(ContainSubstring("Subject: Password reset"))
			Expect(msg.MsgRequest()).To(ContainSubstring("To: alice@example.com"))
			Expect(msg.MsgRequest()).To(ContainSubstring("Your code is 123456"))
		})

		It("does not dial once the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Expect(sender.Send(ctx, mailer.Message{To: "alice@example.com"})).To(MatchError(context.Canceled))
			Consistently(server.Messages).Should(BeEmpty())
		})
	})

	Describe("NewSender", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))

		It("logs instead of sending without an smtp host", func() {
			s := mailer.NewSender(internal.SMTPConfig{}, lg)
			Expect(s).To(BeAssignableToTypeOf(&mailer.LogSender{}))
			Expect(s.Send(context.Background(), mailer.Message{To: "a@b.co"})).To(Succeed())
		})

		It("uses smtp when a host is configured", func() {
			s := mailer.NewSender(internal.SMTPConfig{Host: "mail.example.com", Port: 25}, lg)
			Expect(s).To(BeAssignableToTypeOf(&mailer.SMTPSender{}))
		})
	})
})
