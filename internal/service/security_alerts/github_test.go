package security_alerts_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/google/go-github/v66/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/service/security_alerts"
)

var _ = Describe("GitHubAlertSource", func() {
	var (
		server *httptest.Server
		mux    *http.ServeMux
		source security_alerts.AlertSource
		repo   security_alerts.Repository
		ctx    context.Context
	)

	BeforeEach(func() {
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)

		client := github.NewClient(nil)
		baseURL, err := url.Parse(server.URL + "/")
		Expect(err).ToNot(HaveOccurred())
		client.BaseURL = baseURL

		source = security_alerts.NewGitHubAlertSource(client)
		repo = security_alerts.Repository{Owner: "acme", Name: "api"}
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	It("requests open code scanning alerts and normalizes them", func() {
		mux.HandleFunc("/repos/acme/api/code-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Query().Get("state")).To(Equal("open"))
			Expect(r.URL.Query().Get("per_page")).To(Equal("100"))
			fmt.Fprint(w, `[{
				"number": 12,
				"state": "open",
				"html_url": "https://github.com/acme/api/security/code-scanning/12",
				"created_at": "2025-01-02T03:04:05Z",
				"rule": {"id": "js/xss", "severity": "warning", "description": "Cross-site scripting"}
			}]`)
		})

		alerts, err := source.ListOpenAlerts(ctx, model.CategoryCodeScanning, repo)
		Expect(err).ToNot(HaveOccurred())
		Expect(alerts).To(HaveLen(1))
		Expect(alerts[0].ID).To(Equal("code-scanning-12"))
		Expect(alerts[0].Severity).To(Equal(model.SeverityWarning))
		Expect(alerts[0].Title).To(Equal("Cross-site scripting"))
	})

	It("requests open dependabot alerts", func() {
		mux.HandleFunc("/repos/acme/api/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Query().Get("state")).To(Equal("open"))
			fmt.Fprint(w, `[{
				"number": 5,
				"state": "open",
				"html_url": "https://github.com/acme/api/security/dependabot/5",
				"dependency": {"package": {"name": "minimist"}, "manifest_path": "yarn.lock"},
				"security_advisory": {"ghsa_id": "GHSA-1", "summary": "Prototype Pollution", "severity": "critical", "description": "desc"}
			}]`)
		})

		alerts, err := source.ListOpenAlerts(ctx, model.CategoryDependabot, repo)
		Expect(err).ToNot(HaveOccurred())
		Expect(alerts).To(HaveLen(1))
		Expect(alerts[0].Title).To(Equal("Prototype Pollution in minimist"))
		Expect(alerts[0].CVEID).To(HaveValue(Equal("GHSA-1")))
	})

	It("requests open secret scanning alerts", func() {
		mux.HandleFunc("/repos/acme/api/secret-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"number": 1, "state": "open", "secret_type": "aws_access_key_id", "secret_type_display_name": "AWS Access Key ID", "html_url": "https://github.com/acme/api/security/secret-scanning/1"}]`)
		})

		alerts, err := source.ListOpenAlerts(ctx, model.CategorySecretScanning, repo)
		Expect(err).ToNot(HaveOccurred())
		Expect(alerts).To(HaveLen(1))
		Expect(alerts[0].Severity).To(Equal(model.SeverityCritical))
	})

	DescribeTable("classifies failures",
		func(status int, accessDenied bool) {
			mux.HandleFunc("/repos/acme/api/secret-scanning/alerts", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				fmt.Fprint(w, `{"message": "nope"}`)
			})

			_, err := source.ListOpenAlerts(ctx, model.CategorySecretScanning, repo)
			Expect(err).To(HaveOccurred())

			var sourceErr *security_alerts.SourceError
			Expect(errors.As(err, &sourceErr)).To(BeTrue())
			Expect(sourceErr.StatusCode).To(Equal(status))
			Expect(sourceErr.Category).To(Equal(model.CategorySecretScanning))
			Expect(security_alerts.IsAccessDenied(err)).To(Equal(accessDenied))
		},
		Entry("not found", http.StatusNotFound, true),
		Entry("forbidden", http.StatusForbidden, true),
		Entry("server error", http.StatusInternalServerError, false),
		Entry("unauthorized", http.StatusUnauthorized, false),
	)

	It("rejects unknown categories", func() {
		_, err := source.ListOpenAlerts(ctx, model.Category("container-scanning"), repo)
		Expect(err).To(MatchError(ContainSubstring("unknown alert category")))
	})
})

var _ = Describe("IsAccessDenied", func() {
	It("is false for errors without a status", func() {
		Expect(security_alerts.IsAccessDenied(errors.New("dial tcp: refused"))).To(BeFalse())
		Expect(security_alerts.IsAccessDenied(&security_alerts.SourceError{Err: errors.New("timeout")})).To(BeFalse())
	})

	It("looks through wrapping", func() {
		err := fmt.Errorf("fetching: %w", &security_alerts.SourceError{StatusCode: http.StatusNotFound, Err: errors.New("x")})
		Expect(security_alerts.IsAccessDenied(err)).To(BeTrue())
	})
})
