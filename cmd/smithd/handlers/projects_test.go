package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/datasmith-io/datasmith/cmd/smithd/handlers"
	httptestutil "github.com/datasmith-io/datasmith/internal/testutils/http"
	apiproj "github.com/datasmith-io/datasmith/pkg/api/types/projects"
	"github.com/datasmith-io/datasmith/pkg/auth"
	"github.com/datasmith-io/datasmith/pkg/domain"
	kerr "github.com/datasmith-io/datasmith/pkg/domain/errors"
	mockdb "github.com/datasmith-io/datasmith/pkg/domain/project/db/mock"
	"github.com/datasmith-io/datasmith/pkg/utils/cmp"
	"github.com/datasmith-io/datasmith/pkg/utils/slices"
)

func dummyProject(name string) domain.Project {
	return domain.Project{
		Id:        dummyProjectId,
		OrgId:     dummyOrg,
		Name:      name,
		CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestCreateProjectHandler(t *testing.T) {
	t.Run("it creates a project and responds 201", func(t *testing.T) {
		expected := dummyProject("customer support")

		mockProject := mockdb.NewProjectInterface()
		mockProject.Impl.New = func(context.Context, string, string) (domain.Project, error) {
			return expected, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/v1/projects",
			strings.NewReader(`{"name": "customer support"}`),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.CreateProjectHandler(mockProject)
		if err := testee(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}
		if respRec.Code != http.StatusCreated {
			t.Errorf("unmatch: status code: %d != %d", respRec.Code, http.StatusCreated)
		}

		resp := envelope[apiproj.Detail]{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Data.Equal(apiproj.Compose(expected)) {
			t.Errorf(
				"unmatch: response body: (actual, expected) = (%+v, %+v)",
				resp.Data, apiproj.Compose(expected),
			)
		}

		{
			actual := mockProject.Calls.New
			if len(actual) != 1 || actual[0].OrgId != dummyOrg || actual[0].Name != "customer support" {
				t.Errorf("unmatch: query for ProjectInterface.New: %+v", actual)
			}
		}
	})

	t.Run("it responds 409 when the name is taken", func(t *testing.T) {
		mockProject := mockdb.NewProjectInterface()
		mockProject.Impl.New = func(context.Context, string, string) (domain.Project, error) {
			return domain.Project{}, kerr.ErrProjectNameTaken
		}

		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/v1/projects",
			strings.NewReader(`{"name": "customer support"}`),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		auth.SetOrg(c, dummyOrg)

		testee := handlers.CreateProjectHandler(mockProject)
		err := testee(c)
		if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
			t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
		} else if httperr.Code != http.StatusConflict {
			t.Errorf("unmatch: status code: %d != %d", httperr.Code, http.StatusConflict)
		}
	})

	t.Run("it rejects bodies without a name", func(t *testing.T) {
		for name, body := range map[string]string{
			"empty object":    `{}`,
			"blank name":      `{"name": "   "}`,
			"not JSON at all": `broken`,
		} {
			t.Run(name, func(t *testing.T) {
				mockProject := mockdb.NewProjectInterface()

				e := echo.New()
				c, _ := httptestutil.Post(
					e, "/api/v1/projects", strings.NewReader(body),
					httptestutil.ContentType(echo.MIMEApplicationJSON),
				)
				auth.SetOrg(c, dummyOrg)

				testee := handlers.CreateProjectHandler(mockProject)
				err := testee(c)
				if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
					t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
				} else if httperr.Code != http.StatusBadRequest {
					t.Errorf("unmatch: status code: %d != %d", httperr.Code, http.StatusBadRequest)
				}

				if len(mockProject.Calls.New) != 0 {
					t.Errorf("ProjectInterface.New should not be called: %+v", mockProject.Calls.New)
				}
			})
		}
	})
}

func TestFindProjectHandler(t *testing.T) {
	t.Run("it lists the organization's projects", func(t *testing.T) {
		projects := []domain.Project{
			dummyProject("a"), dummyProject("b"),
		}

		mockProject := mockdb.NewProjectInterface()
		mockProject.Impl.Find = func(context.Context, string) ([]domain.Project, error) {
			return projects, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Get(e, "/api/v1/projects")
		auth.SetOrg(c, dummyOrg)

		testee := handlers.FindProjectHandler(mockProject)
		if err := testee(c); err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		resp := envelope[[]apiproj.Detail]{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		expected := slices.Map(projects, apiproj.Compose)
		if !cmp.SliceEqWith(resp.Data, expected, apiproj.Detail.Equal) {
			t.Errorf("unmatch: response body: (actual, expected) = (%+v, %+v)", resp.Data, expected)
		}

		{
			actual := mockProject.Calls.Find
			if !cmp.SliceEq(actual, []string{dummyOrg}) {
				t.Errorf("unmatch: query for ProjectInterface.Find: %+v", actual)
			}
		}
	})
}

func TestDeleteProjectHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		when error
		then int
	}{
		"it responds 204 when the project is deleted": {when: nil, then: http.StatusNoContent},
		"it responds 404 when the project is missing": {when: kerr.ErrMissing, then: http.StatusNotFound},
		"it responds 500 when the store breaks down":  {when: errors.New("fake error"), then: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			mockProject := mockdb.NewProjectInterface()
			mockProject.Impl.Delete = func(context.Context, string, string) error {
				return testcase.when
			}

			e := echo.New()
			c, respRec := httptestutil.Delete(e, "/api/v1/projects/"+dummyProjectId)
			c.SetParamNames("projectId")
			c.SetParamValues(dummyProjectId)
			auth.SetOrg(c, dummyOrg)

			testee := handlers.DeleteProjectHandler(mockProject)
			err := testee(c)

			if testcase.when == nil {
				if err != nil {
					t.Fatalf("unexpected error: %+v", err)
				}
				if respRec.Code != testcase.then {
					t.Errorf("unmatch: status code: %d != %d", respRec.Code, testcase.then)
				}
				return
			}

			if httperr := new(echo.HTTPError); !errors.As(err, &httperr) {
				t.Fatalf("unmatch: error type: %+v is not echo.HTTPError", err)
			} else if httperr.Code != testcase.then {
				t.Errorf("unmatch: status code: %d != %d", httperr.Code, testcase.then)
			}
		})
	}
}
