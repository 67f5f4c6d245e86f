package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/gitsorted/test-integration/sync/helpers"
)

var _ = Describe("Issue synchronization", Ordered, func() {
	var (
		tempDir string
		github  *helpers.FakeGitHub
		webhook *helpers.FakeWebhook
		server  *helpers.ServerTestHelper
		t0      time.Time
	)

	BeforeAll(func() {
		tempDir = createTempDir("gitsorted-sync-")
		t0 = time.Now().Add(-24 * time.Hour).UTC().Truncate(time.Second)

		github = helpers.NewFakeGitHub("acme", "widgets")
		github.AddIssues(
			helpers.FakeIssue{Number: 1, Title: "Crash on start", Author: "ext1", CreatedAt: t0},
			helpers.FakeIssue{Number: 2, Title: "Release checklist", Author: "Alice", CreatedAt: t0.Add(time.Hour)},
			helpers.FakeIssue{Number: 3, Title: "Docs typo", Author: "ext2", CreatedAt: t0.Add(2 * time.Hour)},
			helpers.FakeIssue{Number: 4, Title: "Fix typo", Author: "ext3", CreatedAt: t0.Add(3 * time.Hour), PullRequest: true},
		)
		webhook = helpers.NewFakeWebhook()

		configPath, err := helpers.WriteConfig(tempDir, helpers.Settings{
			GitHubURL:       github.URL(),
			WebhookURL:      webhook.URL(),
			StoreURL:        pg.ConnStr,
			InternalAuthors: []string{"alice"},
			TickInterval:    300 * time.Millisecond,
			PageSize:        2,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = helpers.NewServerTestHelper(ctx, configPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(30 * time.Second)
	})

	AfterAll(func() {
		if server != nil {
			Expect(server.StopServer()).To(Succeed())
		}
		if github != nil {
			github.Close()
		}
		if webhook != nil {
			webhook.Close()
		}
		cleanupTempDir(tempDir)
	})

	It("persists every issue newer than the watermark, newest first", func() {
		Eventually(server.IssueNumbers, 10*time.Second, 100*time.Millisecond).
			Should(Equal([]int{3, 2, 1}))
	})

	It("greets external authors only", func() {
		Expect(webhook.Messages()).To(ConsistOf(
			"New issue #3 by ext2",
			"New issue #1 by ext1",
		))
		Expect(github.CommentedNumbers()).To(ConsistOf(1, 3))
		for _, c := range github.Comments() {
			Expect(c.Body).To(HavePrefix("Thanks @ext"))
		}
	})

	It("does not greet an issue twice on later ticks", func() {
		listings := github.Listings()
		Eventually(github.Listings, 5*time.Second).Should(BeNumerically(">", listings+2))

		Consistently(webhook.Messages, time.Second, 100*time.Millisecond).Should(HaveLen(2))
		Expect(github.Comments()).To(HaveLen(2))
	})

	It("picks up new issues and keeps going when a notification fails", func() {
		webhook.FailWhenContains("#6")
		github.AddIssues(
			helpers.FakeIssue{Number: 5, Title: "Slow build", Author: "ext4"},
			helpers.FakeIssue{Number: 6, Title: "Flaky test", Author: "ext5"},
		)

		Eventually(server.IssueNumbers, 10*time.Second, 100*time.Millisecond).
			Should(Equal([]int{6, 5, 3, 2, 1}))
		Expect(github.CommentedNumbers()).To(ConsistOf(1, 3, 5, 6))
		Expect(webhook.Messages()).To(ContainElement("New issue #5 by ext4"))
		Expect(webhook.Messages()).NotTo(ContainElement(ContainSubstring("#6")))

		Consistently(github.Comments, time.Second, 100*time.Millisecond).Should(HaveLen(4))
	})

	It("reports per-issue details on the display API", func() {
		list, err := server.ListIssues()
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Count).To(Equal(5))

		first := list.Issues[0]
		Expect(first.Number).To(Equal(6))
		Expect(first.Author).To(Equal("ext5"))
		Expect(first.Title).To(Equal("Flaky test"))
		Expect(first.CreatedAt.After(t0.Add(3 * time.Hour))).To(BeTrue())
		Expect(first.LastProcessed.After(first.CreatedAt)).To(BeTrue())
	})
})
