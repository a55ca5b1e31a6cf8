package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nickhealDD/ghas-jira-sync/core/config"
)

var managedEnv = []string{
	"GHAS_SYNC_ENV", "GHAS_SYNC_DRY_RUN", "GITHUB_TOKEN", "GHAS_SYNC_OWNER", "GHAS_SYNC_REPO",
	"JIRA_HOST", "JIRA_EMAIL", "JIRA_API_TOKEN", "GHAS_SYNC_JIRA_PROJECT", "GHAS_SYNC_JIRA_EPIC",
	"GITHUB_ACTIONS", "GITHUB_REPOSITORY", "INPUT_OWNER", "INPUT_REPO", "INPUT_JIRA_EPIC",
	"INPUT_JIRA_PROJECT", "INPUT_DRY_RUN", "INPUT_GITHUB_TOKEN", "GITHUB_WEBHOOK_SECRET",
	"GHAS_SYNC_LOCK_TTL", "REDIS_URL", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func setEnv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
}

var _ = Describe("Load", func() {
	BeforeEach(func() {
		saved := map[string]*string{}
		for _, key := range managedEnv {
			if v, ok := os.LookupEnv(key); ok {
				saved[key] = &v
			} else {
				saved[key] = nil
			}
			Expect(os.Unsetenv(key)).To(Succeed())
		}
		DeferCleanup(func() {
			for key, v := range saved {
				if v == nil {
					_ = os.Unsetenv(key)
				} else {
					_ = os.Setenv(key, *v)
				}
			}
		})

		setEnv("GHAS_SYNC_ENV", "test")
		setEnv("GITHUB_TOKEN", "ghp_test")
		setEnv("GHAS_SYNC_OWNER", "acme")
		setEnv("GHAS_SYNC_REPO", "widgets")
		setEnv("JIRA_HOST", "https://acme.atlassian.net")
		setEnv("JIRA_EMAIL", "bot@acme.io")
		setEnv("JIRA_API_TOKEN", "secret")
		setEnv("GHAS_SYNC_JIRA_PROJECT", "SEC")
		setEnv("GHAS_SYNC_JIRA_EPIC", "SEC-1")
	})

	It("loads from the environment", func() {
		cfg, err := config.Load(config.ServiceTypeCLI, config.Overrides{})
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.GitHub.Owner).To(Equal("acme"))
		Expect(cfg.GitHub.Repo).To(Equal("widgets"))
		Expect(cfg.Jira.Project).To(Equal("SEC"))
		Expect(cfg.Jira.Epic).To(Equal("SEC-1"))
		Expect(cfg.DryRun).To(BeFalse())
		Expect(cfg.Redis.Enabled()).To(BeFalse())
		Expect(cfg.Redis.LockTTL).To(Equal(15 * time.Minute))
		Expect(cfg.OTel.Enabled()).To(BeFalse())
		Expect(cfg.OTel.ServiceName).To(Equal("ghas-jira-sync"))
	})

	It("lets command-line overrides win", func() {
		dryRun := true
		cfg, err := config.Load(config.ServiceTypeCLI, config.Overrides{
			Owner:   "other",
			Project: "OPS",
			DryRun:  &dryRun,
			Debug:   true,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.GitHub.Owner).To(Equal("other"))
		Expect(cfg.GitHub.Repo).To(Equal("widgets"))
		Expect(cfg.Jira.Project).To(Equal("OPS"))
		Expect(cfg.DryRun).To(BeTrue())
		Expect(cfg.Debug).To(BeTrue())
	})

	Context("inside a GitHub Action", func() {
		BeforeEach(func() {
			setEnv("GITHUB_ACTIONS", "true")
			setEnv("GITHUB_REPOSITORY", "octo/service")
		})

		It("defaults owner and repo from the workflow repository", func() {
			cfg, err := config.Load(config.ServiceTypeCLI, config.Overrides{})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.GitHub.Owner).To(Equal("octo"))
			Expect(cfg.GitHub.Repo).To(Equal("service"))
		})

		It("reads action inputs", func() {
			setEnv("INPUT_REPO", "api")
			setEnv("INPUT_JIRA_EPIC", "SEC-99")
			setEnv("INPUT_DRY_RUN", "true")
			setEnv("INPUT_GITHUB_TOKEN", "ghs_action")

			cfg, err := config.Load(config.ServiceTypeCLI, config.Overrides{})
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.GitHub.Owner).To(Equal("octo"))
			Expect(cfg.GitHub.Repo).To(Equal("api"))
			Expect(cfg.GitHub.Token).To(Equal("ghs_action"))
			Expect(cfg.Jira.Epic).To(Equal("SEC-99"))
			Expect(cfg.DryRun).To(BeTrue())
		})

		It("still lets flags win over inputs", func() {
			setEnv("INPUT_REPO", "api")

			cfg, err := config.Load(config.ServiceTypeCLI, config.Overrides{Repo: "cli-repo"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.GitHub.Repo).To(Equal("cli-repo"))
		})
	})

	Describe("validation", func() {
		It("rejects a Jira host that is not a URL", func() {
			setEnv("JIRA_HOST", "acme.atlassian.net")

			_, err := config.Load(config.ServiceTypeCLI, config.Overrides{})
			Expect(err).To(MatchError(ContainSubstring("Jira host must be a valid URL")))
		})

		It("rejects an invalid Jira email", func() {
			setEnv("JIRA_EMAIL", "not-an-email")

			_, err := config.Load(config.ServiceTypeCLI, config.Overrides{})
			Expect(err).To(MatchError(ContainSubstring("Jira email must be valid")))
		})

		It("reports every missing value at once", func() {
			Expect(os.Unsetenv("GITHUB_TOKEN")).To(Succeed())
			Expect(os.Unsetenv("GHAS_SYNC_JIRA_EPIC")).To(Succeed())

			_, err := config.Load(config.ServiceTypeCLI, config.Overrides{})
			Expect(err).To(MatchError(ContainSubstring("GitHub token is required")))
			Expect(err).To(MatchError(ContainSubstring("Jira epic ID is required")))
		})

		It("requires a webhook secret in server mode", func() {
			_, err := config.Load(config.ServiceTypeServer, config.Overrides{})
			Expect(err).To(MatchError(ContainSubstring("GITHUB_WEBHOOK_SECRET")))

			setEnv("GITHUB_WEBHOOK_SECRET", "shh")
			_, err = config.Load(config.ServiceTypeServer, config.Overrides{})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	It("reports the environment", func() {
		Expect(config.Config{Env: "production"}.IsProduction()).To(BeTrue())
		Expect(config.Config{Env: "development"}.IsDevelopment()).To(BeTrue())
	})
})
