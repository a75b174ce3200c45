package handlers_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/cmd/smithd/handlers"
	httptestutil "github.com/datasmith-io/datasmith/internal/testutils/http"
	apisrc "github.com/datasmith-io/datasmith/pkg/api/types/sources"
	"github.com/datasmith-io/datasmith/pkg/auth"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	mockdb "github.com/datasmith-io/datasmith/pkg/domain/source/db/mock"
	srcdb "github.com/datasmith-io/datasmith/pkg/domain/source/db"
	"github.com/datasmith-io/datasmith/pkg/secret"
	"github.com/datasmith-io/datasmith/pkg/utils/try"
)

const dummySourceId = "9c2e4d8a-1b3f-4c5d-8e7f-6a9b0c1d2e3f"

func testBox(t *testing.T) *secret.Box {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	box, err := secret.NewBox(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatal(err)
	}
	return box
}

type fakeUploads struct {
	name string
	body []byte
}

func (f *fakeUploads) SaveUpload(name string, r io.Reader) (string, int64, error) {
	f.name = name
	body, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	f.body = body
	return "/var/lib/datasmith/uploads/" + name, int64(len(body)), nil
}

func dummySource() domain.Source {
	created := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	return domain.Source{
		Id:        dummySourceId,
		ProjectId: dummyProjectId,
		Name:      "support chats",
		Type:      domain.SourceTeamwork,
		Status:    domain.SourcePending,
		Connector: &domain.ConnectorSpec{
			Domain:     "example.teamwork.com",
			Credential: []byte("sealed"),
			DataTypes:  []string{"messages"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCreateSourceHandler(t *testing.T) {
	t.Run("a JSON body creates a connector source with a sealed credential", func(t *testing.T) {
		box := testBox(t)

		mockSource := mockdb.NewSourceInterface()
		mockSource.Impl.New = func(_ context.Context, _ string, _ string, spec srcdb.SourceSpec) (domain.Source, error) {
			s := dummySource()
			s.Name = spec.Name
			s.Connector = spec.Connector
			return s, nil
		}

		body := `{
			"name": "support chats",
			"type": "teamwork",
			"connector": {
				"domain": "example.teamwork.com",
				"credential": {"apiKey": "tw-key-secret"},
				"dataTypes": ["messages", "tasks"]
			}
		}`

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/v1/projects/"+dummyProjectId+"/sources",
			strings.NewReader(body),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		c.SetParamNames("projectId")
		c.SetParamValues(dummyProjectId)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.CreateSourceHandler(mockSource, &fakeUploads{}, box)
		if err := testee(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if respRec.Code != http.StatusCreated {
			t.Errorf("unmatch: status code: %d != %d", respRec.Code, http.StatusCreated)
		}

		{
			actual := mockSource.Calls.New
			if len(actual) != 1 {
				t.Fatalf("unmatch: query for SourceInterface.New: %+v", actual)
			}
			spec := actual[0].Spec
			if spec.Connector == nil {
				t.Fatal("connector spec is missing")
			}
			if bytes.Contains(spec.Connector.Credential, []byte("tw-key-secret")) {
				t.Error("the credential is stored in plaintext")
			}
			plain := try.To(box.Open(spec.Connector.Credential)).OrFatal(t)
			cred := struct {
				ApiKey string `json:"apiKey"`
			}{}
			if err := json.Unmarshal(plain, &cred); err != nil {
				t.Fatal(err)
			}
			if cred.ApiKey != "tw-key-secret" {
				t.Errorf("unmatch: sealed apiKey: %s", cred.ApiKey)
			}
		}

		{
			// the response must not echo the credential in any form
			if bytes.Contains(respRec.Body.Bytes(), []byte("tw-key-secret")) {
				t.Error("the response leaks the credential")
			}
			resp := envelope[apisrc.Detail]{}
			if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Data.Connector == nil || !resp.Data.Connector.HasCredential {
				t.Errorf("unmatch: connector detail: %+v", resp.Data.Connector)
			}
		}
	})

	t.Run("a multipart body creates a file source from the upload", func(t *testing.T) {
		mockSource := mockdb.NewSourceInterface()
		mockSource.Impl.New = func(_ context.Context, _ string, _ string, spec srcdb.SourceSpec) (domain.Source, error) {
			s := dummySource()
			s.Name = spec.Name
			s.Type = domain.SourceFile
			s.Connector = nil
			s.File = spec.File
			return s, nil
		}

		content := `{"text": "hello", "speaker": "alice"}` + "\n"
		buf := bytes.Buffer{}
		mw := multipart.NewWriter(&buf)
		if err := mw.WriteField("name", "chat export"); err != nil {
			t.Fatal(err)
		}
		fw := try.To(mw.CreateFormFile("file", "chats.jsonl")).OrFatal(t)
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := mw.Close(); err != nil {
			t.Fatal(err)
		}

		uploads := &fakeUploads{}

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/v1/projects/"+dummyProjectId+"/sources", &buf,
			httptestutil.ContentType(mw.FormDataContentType()),
		)
		c.SetParamNames("projectId")
		c.SetParamValues(dummyProjectId)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.CreateSourceHandler(mockSource, uploads, testBox(t))
		if err := testee(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if respRec.Code != http.StatusCreated {
			t.Errorf("unmatch: status code: %d != %d", respRec.Code, http.StatusCreated)
		}

		if uploads.name != "chats.jsonl" || string(uploads.body) != content {
			t.Errorf("unmatch: saved upload: (%s, %s)", uploads.name, string(uploads.body))
		}

		{
			actual := mockSource.Calls.New
			if len(actual) != 1 {
				t.Fatalf("unmatch: query for SourceInterface.New: %+v", actual)
			}
			spec := actual[0].Spec
			if spec.Type != domain.SourceFile || spec.File == nil {
				t.Fatalf("unmatch: spec: %+v", spec)
			}
			if spec.File.Size != int64(len(content)) {
				t.Errorf("unmatch: upload size: %d != %d", spec.File.Size, len(content))
			}
		}
	})

	t.Run("it rejects broken bodies", func(t *testing.T) {
		for name, body := range map[string]string{
			"no name":            `{"type": "teamwork", "connector": {"domain": "x.teamwork.com", "credential": {"apiKey": "k"}}}`,
			"file type via JSON": `{"name": "s", "type": "file"}`,
			"unknown type":       `{"name": "s", "type": "slack"}`,
			"no domain":          `{"name": "s", "type": "teamwork", "connector": {"credential": {"apiKey": "k"}}}`,
			"no apiKey":          `{"name": "s", "type": "teamwork", "connector": {"domain": "x.teamwork.com"}}`,
			"not JSON at all":    `this is not json`,
		} {
			t.Run(name, func(t *testing.T) {
				mockSource := mockdb.NewSourceInterface()

				e := echo.New()
				c, _ := httptestutil.Post(
					e, "/api/v1/projects/"+dummyProjectId+"/sources",
					strings.NewReader(body),
					httptestutil.ContentType(echo.MIMEApplicationJSON),
				)
				c.SetParamNames("projectId")
				c.SetParamValues(dummyProjectId)
				auth.SetOrg(c, dummyOrg)

				testee := handlers.CreateSourceHandler(mockSource, &fakeUploads{}, testBox(t))
				err := testee(c)
				if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
					t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
				} else if httperr.Code != http.StatusBadRequest {
					t.Errorf("unmatch: status code: %d != %d", httperr.Code, http.StatusBadRequest)
				}

				if len(mockSource.Calls.New) != 0 {
					t.Errorf("SourceInterface.New should not be called: %+v", mockSource.Calls.New)
				}
			})
		}
	})
}

func TestSyncSourceHandler(t *testing.T) {
	t.Run("it queues the sync and responds 202", func(t *testing.T) {
		mockSource := mockdb.NewSourceInterface()
		mockSource.Impl.RequestSync = func(context.Context, string, string) error {
			return nil
		}

		e := echo.New()
		c, respRec := httptestutil.Post(e, "/api/v1/sources/"+dummySourceId+"/sync", nil)
		c.SetParamNames("sourceId")
		c.SetParamValues(dummySourceId)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.SyncSourceHandler(mockSource)
		if err := testee(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if respRec.Code != http.StatusAccepted {
			t.Errorf("unmatch: status code: %d != %d", respRec.Code, http.StatusAccepted)
		}

		{
			actual := mockSource.Calls.RequestSync
			if len(actual) != 1 || actual[0].OrgId != dummyOrg || actual[0].SourceId != dummySourceId {
				t.Errorf("unmatch: query for SourceInterface.RequestSync: %+v", actual)
			}
		}
	})

	t.Run("it responds 404 for a missing source", func(t *testing.T) {
		mockSource := mockdb.NewSourceInterface()
		mockSource.Impl.RequestSync = func(context.Context, string, string) error {
			return kerr.ErrMissing
		}

		e := echo.New()
		c, _ := httptestutil.Post(e, "/api/v1/sources/"+dummySourceId+"/sync", nil)
		c.SetParamNames("sourceId")
		c.SetParamValues(dummySourceId)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.SyncSourceHandler(mockSource)
		err := testee(c)
		if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
			t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
		} else if httperr.Code != http.StatusNotFound {
			t.Errorf("unmatch: status code: %d != %d", httperr.Code, http.StatusNotFound)
		}
	})
}

type fakeTester struct {
	err   error
	conns []*domain.ConnectorSpec
}

func (f *fakeTester) Test(_ context.Context, conn *domain.ConnectorSpec) error {
	f.conns = append(f.conns, conn)
	return f.err
}

func TestTestSourceHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		when error
		then struct {
			Ok    bool   `json:"ok"`
			Error string `json:"error"`
		}
	}{
		"it responds ok when the connector answers": {
			when: nil,
			then: struct {
				Ok    bool   `json:"ok"`
				Error string `json:"error"`
			}{Ok: true},
		},
		"it responds not-ok with the cause when the connector rejects": {
			when: errors.New("teamwork: unexpected status 401"),
			then: struct {
				Ok    bool   `json:"ok"`
				Error string `json:"error"`
			}{Ok: false, Error: "teamwork: unexpected status 401"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			mockSource := mockdb.NewSourceInterface()
			mockSource.Impl.Get = func(context.Context, string, string) (domain.Source, error) {
				return dummySource(), nil
			}
			tester := &fakeTester{err: testcase.when}

			e := echo.New()
			c, respRec := httptestutil.Post(e, "/api/v1/sources/"+dummySourceId+"/test", nil)
			c.SetParamNames("sourceId")
			c.SetParamValues(dummySourceId)
			auth.SetOrg(c, dummyOrg)

			testee := handlers.TestSourceHandler(mockSource, tester)
			if err := testee(c); err != nil {
				t.Fatalf("unexpected error: %+v", err)
			}

			resp := envelope[struct {
				Ok    bool   `json:"ok"`
				Error string `json:"error"`
			}]{}
			if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Data != testcase.then {
				t.Errorf("unmatch: response: (actual, expected) = (%+v, %+v)", resp.Data, testcase.then)
			}

			if len(tester.conns) != 1 || tester.conns[0].Domain != "example.teamwork.com" {
				t.Errorf("unmatch: tested connector: %+v", tester.conns)
			}
		})
	}

	t.Run("it responds 422 for a file source", func(t *testing.T) {
		mockSource := mockdb.NewSourceInterface()
		mockSource.Impl.Get = func(context.Context, string, string) (domain.Source, error) {
			s := dummySource()
			s.Type = domain.SourceFile
			s.Connector = nil
			s.File = &domain.FileSpec{Path: "/x", Size: 1, ContentType: "text/csv"}
			return s, nil
		}

		e := echo.New()
		c, _ := httptestutil.Post(e, "/api/v1/sources/"+dummySourceId+"/test", nil)
		c.SetParamNames("sourceId")
		c.SetParamValues(dummySourceId)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.TestSourceHandler(mockSource, &fakeTester{})
		err := testee(c)
		if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
			t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
		} else if httperr.Code != http.StatusUnprocessableEntity {
			t.Errorf("unmatch: status code: %d != %d", httperr.Code, http.StatusUnprocessableEntity)
		}
	})
}

func TestPutDeidentificationHandler(t *testing.T) {
	t.Run("it stores the config and responds the stored state", func(t *testing.T) {
		stored := domain.DeidentConfig{
			Enabled: true,
			Rules: []domain.DeidentRule{
				{Field: "email", Strategy: domain.StrategyMask},
			},
			Detectors: []domain.CustomDetector{
				{Name: "employee-id", Pattern: `E-\d{6}`},
			},
			Report: []domain.PIIFinding{
				{Field: "text", Kind: "email", Count: 3},
			},
		}

		mockSource := mockdb.NewSourceInterface()
		mockSource.Impl.PutDeident = func(context.Context, string, string, domain.DeidentConfig) error {
			return nil
		}
		mockSource.Impl.Deident = func(context.Context, string, string) (domain.DeidentConfig, error) {
			return stored, nil
		}

		body := `{
			"enabled": true,
			"rules": [{"field": "email", "strategy": "mask"}],
			"detectors": [{"name": "employee-id", "pattern": "E-\\d{6}"}]
		}`

		e := echo.New()
		c, respRec := httptestutil.Put(
			e, "/api/v1/sources/"+dummySourceId+"/deidentification",
			strings.NewReader(body),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		c.SetParamNames("sourceId")
		c.SetParamValues(dummySourceId)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.PutDeidentificationHandler(mockSource)
		if err := testee(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		resp := envelope[apisrc.Deidentification]{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Data.Equal(apisrc.ComposeDeidentification(stored)) {
			t.Errorf(
				"unmatch: response body: (actual, expected) = (%+v, %+v)",
				resp.Data, apisrc.ComposeDeidentification(stored),
			)
		}

		{
			actual := mockSource.Calls.PutDeident
			if len(actual) != 1 {
				t.Fatalf("unmatch: query for SourceInterface.PutDeident: %+v", actual)
			}
			conf := actual[0].Conf
			if !conf.Enabled ||
				len(conf.Rules) != 1 || conf.Rules[0].Strategy != domain.StrategyMask ||
				len(conf.Detectors) != 1 {
				t.Errorf("unmatch: stored config: %+v", conf)
			}
		}
	})

	t.Run("it rejects invalid configs with 422", func(t *testing.T) {
		for name, body := range map[string]string{
			"unknown strategy":        `{"enabled": true, "rules": [{"field": "email", "strategy": "rot13"}]}`,
			"broken detector pattern": `{"enabled": true, "detectors": [{"name": "x", "pattern": "(unclosed"}]}`,
		} {
			t.Run(name, func(t *testing.T) {
				mockSource := mockdb.NewSourceInterface()

				e := echo.New()
				c, _ := httptestutil.Put(
					e, "/api/v1/sources/"+dummySourceId+"/deidentification",
					strings.NewReader(body),
					httptestutil.ContentType(echo.MIMEApplicationJSON),
				)
				c.SetParamNames("sourceId")
				c.SetParamValues(dummySourceId)
				auth.SetOrg(c, dummyOrg)

				testee := handlers.PutDeidentificationHandler(mockSource)
				err := testee(c)
				if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
					t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
				} else if httperr.Code != http.StatusUnprocessableEntity {
					t.Errorf("unmatch: status code: %d != %d", httperr.Code, http.StatusUnprocessableEntity)
				}

				if len(mockSource.Calls.PutDeident) != 0 {
					t.Errorf("SourceInterface.PutDeident should not be called: %+v", mockSource.Calls.PutDeident)
				}
			})
		}
	})
}
