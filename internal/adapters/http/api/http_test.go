package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/celebratehub/confetti/internal/adapters/http/api"
	"github.com/celebratehub/confetti/internal/domain/detect"
	"github.com/celebratehub/confetti/internal/domain/model"
	"github.com/celebratehub/confetti/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	_ = logger.SetLevelString("error")
	os.Exit(m.Run())
}

// fakeService scripts the pipeline behavior behind the HTTP layer.
type fakeService struct {
	result     model.PipelineResult
	processErr error
	lastEvent  model.Event

	milestones []model.Milestone
	listErr    error

	lastContributor string
	lastRepository  string
	lastLimit       int

	stats model.MilestoneStats

	previewPost string
	previewErr  error
}

func (f *fakeService) ProcessEvent(_ context.Context, ev model.Event) (model.PipelineResult, error) {
	f.lastEvent = ev
	return f.result, f.processErr
}

func (f *fakeService) ListMilestones(_ context.Context, contributor, repository string, limit int) ([]model.Milestone, error) {
	f.lastContributor = contributor
	f.lastRepository = repository
	f.lastLimit = limit
	return f.milestones, f.listErr
}

func (f *fakeService) MilestoneStats(_ context.Context) (model.MilestoneStats, error) {
	return f.stats, nil
}

func (f *fakeService) RenderPreview(_ context.Context, _ model.Milestone) (string, error) {
	return f.previewPost, f.previewErr
}

func newTestServer(svc *fakeService) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func postWebhook(t *testing.T, srv *httptest.Server, eventType, deliveryID, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(body))
	So(err, ShouldBeNil)
	req.Header.Set("Content-Type", "application/json")
	if eventType != "" {
		req.Header.Set("X-GitHub-Event", eventType)
	}
	if deliveryID != "" {
		req.Header.Set("X-GitHub-Delivery", deliveryID)
	}
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

const starBody = `{
	"action": "created",
	"repository": {"full_name": "octo/widgets"},
	"sender": {"login": "alice"}
}`

func TestHandleWebhook(t *testing.T) {
	Convey("Given the webhook endpoint", t, func() {
		Convey("When a delivery crosses a milestone", func() {
			m := model.NewMilestone("octo/widgets", "alice", model.CategoryStar, 10, 10, time.Now())
			svc := &fakeService{result: model.PipelineResult{Milestone: &m, CelebrationPost: "🎉 ten stars!"}}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, body := postWebhook(t, srv, "star", "d-1", starBody)

			Convey("Then the milestone should be acknowledged", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["celebration_post"], ShouldEqual, "🎉 ten stars!")

				milestone, ok := body["milestone"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(milestone["type"], ShouldEqual, "star")
				So(milestone["milestone_reached"], ShouldEqual, float64(10))
			})

			Convey("And the event should be normalized before processing", func() {
				So(svc.lastEvent.Kind, ShouldEqual, model.KindStarCreated)
				So(svc.lastEvent.Repository, ShouldEqual, "octo/widgets")
				So(svc.lastEvent.Actor, ShouldEqual, "alice")
				So(svc.lastEvent.DeliveryID, ShouldEqual, "d-1")
			})
		})

		Convey("When a delivery crosses no milestone", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, body := postWebhook(t, srv, "star", "d-2", starBody)

			Convey("Then the delivery should still be acknowledged", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["message"], ShouldContainSubstring, "no milestone")
				So(body["milestone"], ShouldBeNil)
			})
		})

		Convey("When a delivery is a duplicate", func() {
			svc := &fakeService{result: model.PipelineResult{DuplicateDelivery: true}}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, body := postWebhook(t, srv, "star", "d-3", starBody)

			Convey("Then it should be acknowledged as ignored", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["message"], ShouldContainSubstring, "Duplicate")
			})
		})

		Convey("When the event header is missing", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, body := postWebhook(t, srv, "", "d-4", starBody)

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the body is not JSON", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, body := postWebhook(t, srv, "star", "d-5", `{broken`)

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the content type is not JSON", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhook", strings.NewReader(starBody))
			So(err, ShouldBeNil)
			req.Header.Set("Content-Type", "text/plain")
			req.Header.Set("X-GitHub-Event", "star")
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the counter store is unavailable", func() {
			svc := &fakeService{processErr: detect.NewKind("test", detect.ErrCountersUnavailable)}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, body := postWebhook(t, srv, "star", "d-6", starBody)

			Convey("Then the sender should be told to redeliver", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				So(body["code"], ShouldEqual, "store_unavailable")
			})
		})

		Convey("When the webhook is fetched with GET", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/webhook")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it should not be found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHandleMilestones(t *testing.T) {
	Convey("Given the milestones endpoints", t, func() {
		stored := []model.Milestone{
			model.NewMilestone("octo/widgets", "alice", model.CategoryStar, 10, 10, time.Now()),
		}

		Convey("When listing all milestones", func() {
			svc := &fakeService{milestones: stored}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]any
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)

			Convey("Then the stored milestones should come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				milestones := body["milestones"].([]any)
				So(len(milestones), ShouldEqual, 1)
				So(svc.lastContributor, ShouldBeEmpty)
				So(svc.lastRepository, ShouldBeEmpty)
			})
		})

		Convey("When listing with a limit", func() {
			svc := &fakeService{milestones: stored}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones?limit=7")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the limit should be forwarded", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(svc.lastLimit, ShouldEqual, 7)
			})
		})

		Convey("When the limit is not a number", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones?limit=lots")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When filtering by contributor", func() {
			svc := &fakeService{milestones: stored}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones/contributor/alice")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the contributor filter should be forwarded", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(svc.lastContributor, ShouldEqual, "alice")
			})
		})

		Convey("When filtering by repository", func() {
			svc := &fakeService{milestones: stored}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones/repository/octo/widgets")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the owner/name pair should be forwarded whole", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(svc.lastRepository, ShouldEqual, "octo/widgets")
			})
		})

		Convey("When the repository path is malformed", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones/repository/justaname")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When requesting stats", func() {
			svc := &fakeService{stats: model.MilestoneStats{
				TotalMilestones:    3,
				UniqueContributors: 2,
				MilestoneTypes:     map[model.Category]int{model.CategoryStar: 3},
			}}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]any
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)

			Convey("Then the aggregate shape should come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["total_milestones"], ShouldEqual, float64(3))
				So(body["unique_contributors"], ShouldEqual, float64(2))
			})
		})

		Convey("When requesting an unknown subpath", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/milestones/unknown/route")
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then it should not be found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHandlePreview(t *testing.T) {
	Convey("Given the preview endpoint", t, func() {
		Convey("When previewing a valid milestone", func() {
			svc := &fakeService{previewPost: "🎉 preview!"}
			srv := newTestServer(svc)
			defer srv.Close()

			payload := `{"repository": "octo/widgets", "contributor": "alice", "type": "star", "count": 10}`
			resp, err := http.Post(srv.URL+"/celebrations/preview", "application/json", strings.NewReader(payload))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]any
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)

			Convey("Then the rendered post should come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["celebration_post"], ShouldEqual, "🎉 preview!")
			})
		})

		Convey("When required fields are missing", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			payload := `{"repository": "octo/widgets", "count": 10}`
			resp, err := http.Post(srv.URL+"/celebrations/preview", "application/json", strings.NewReader(payload))
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the count is not positive", func() {
			svc := &fakeService{}
			srv := newTestServer(svc)
			defer srv.Close()

			payload := `{"repository": "octo/widgets", "contributor": "alice", "type": "star", "count": 0}`
			resp, err := http.Post(srv.URL+"/celebrations/preview", "application/json", strings.NewReader(payload))
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the request should be rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestHandleHealth(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		svc := &fakeService{}
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("When checking health", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var body map[string]string
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)

			Convey("Then the service should report ok", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "ok")
			})
		})

		Convey("When scraping metrics", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the Prometheus endpoint should respond", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
