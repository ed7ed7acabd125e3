package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/menagerie/internal/adapters/http/api"
	"github.com/okian/menagerie/internal/adapters/mq/queue"
	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/internal/domain/teams"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockService struct {
	roster    []model.Pet
	teams     []model.Team
	searches  map[string]string
	order     []string
	logs      []model.AbilityLogEntry
	cleared   bool
	useResult model.EquipResult
	useErr    error
	usedTeam  string
	nextID    int
}

func (m *mockService) Roster(ctx context.Context) []model.Pet { return m.roster }

func (m *mockService) SearchRoster(ctx context.Context, query string) []model.Pet {
	var out []model.Pet
	for _, p := range m.roster {
		if teams.Match(query, p, nil) {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockService) Teams() []model.Team { return m.teams }

func (m *mockService) CreateTeam(ctx context.Context, name string) model.Team {
	m.nextID++
	if name == "" {
		name = fmt.Sprintf("Team %d", m.nextID)
	}
	team := model.Team{ID: fmt.Sprintf("t%d", m.nextID), Name: name}
	m.teams = append(m.teams, team)
	return team
}

func (m *mockService) DeleteTeam(ctx context.Context, id string) bool {
	for i, t := range m.teams {
		if t.ID == id {
			m.teams = append(m.teams[:i], m.teams[i+1:]...)
			return true
		}
	}
	return false
}

func (m *mockService) SaveTeam(ctx context.Context, patch teams.Patch) (model.Team, bool) {
	for i, t := range m.teams {
		if t.ID != patch.ID {
			continue
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Slots != nil {
			t.Slots = model.NormalizeSlots(patch.Slots)
		}
		m.teams[i] = t
		return t, true
	}
	return model.Team{}, false
}

func (m *mockService) SetTeamsOrder(ctx context.Context, ids []string) { m.order = ids }

func (m *mockService) TeamSearch(id string) (string, bool) {
	for _, t := range m.teams {
		if t.ID == id {
			return m.searches[id], true
		}
	}
	return "", false
}

func (m *mockService) SetTeamSearch(ctx context.Context, id, raw string) bool {
	for _, t := range m.teams {
		if t.ID == id {
			if m.searches == nil {
				m.searches = make(map[string]string)
			}
			m.searches[id] = raw
			return true
		}
	}
	return false
}

func (m *mockService) UseTeam(ctx context.Context, id string) (model.EquipResult, error) {
	m.usedTeam = id
	return m.useResult, m.useErr
}

func (m *mockService) AbilityLogs(filter string) []model.AbilityLogEntry {
	if filter == "" {
		return m.logs
	}
	var out []model.AbilityLogEntry
	for _, e := range m.logs {
		if strings.Contains(strings.ToLower(e.Nickname), strings.ToLower(filter)) {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockService) ClearAbilityLogs(ctx context.Context) {
	m.cleared = true
	m.logs = nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"teams": 2}
}

func newTestServer(svc *mockService) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, mockStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func request(t *testing.T, method, url, body string, v any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestRosterEndpoint(t *testing.T) {
	Convey("Given a server with a merged roster", t, func() {
		svc := &mockService{roster: []model.Pet{
			{ID: "p1", Species: "sp:otter", Nickname: "Splash"},
			{ID: "p2", Species: "sp:raccoon"},
		}}
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("GET /roster returns the pets", func() {
			var pets []model.Pet
			resp := getJSON(t, srv.URL+"/roster", &pets)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(pets, ShouldHaveLength, 2)
			So(pets[0].Nickname, ShouldEqual, "Splash")
		})

		Convey("GET /roster?search= filters the pets", func() {
			var pets []model.Pet
			resp := getJSON(t, srv.URL+"/roster?search=splash", &pets)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(pets, ShouldHaveLength, 1)
			So(pets[0].ID, ShouldEqual, "p1")
		})

		Convey("a search with no hits serializes as an empty list", func() {
			var pets []model.Pet
			resp := getJSON(t, srv.URL+"/roster?search=sp:badger", &pets)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(pets, ShouldHaveLength, 0)
		})

		Convey("POST /roster is rejected", func() {
			resp := request(t, http.MethodPost, srv.URL+"/roster", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("an empty roster serializes as a list", func() {
			svc.roster = nil
			resp, err := http.Get(srv.URL + "/roster")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			var raw json.RawMessage
			So(json.NewDecoder(resp.Body).Decode(&raw), ShouldBeNil)
			So(strings.TrimSpace(string(raw)), ShouldEqual, "[]")
		})
	})
}

func TestTeamsEndpoints(t *testing.T) {
	Convey("Given a server with two teams", t, func() {
		svc := &mockService{
			teams: []model.Team{
				{ID: "t1", Name: "Foragers", Slots: model.NormalizeSlots([]string{"p1", "p2"})},
				{ID: "t2", Name: "Scouts"},
			},
			nextID: 2,
		}
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("GET /teams lists them", func() {
			var list []model.Team
			resp := getJSON(t, srv.URL+"/teams", &list)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(list, ShouldHaveLength, 2)
		})

		Convey("POST /teams creates one", func() {
			var team model.Team
			resp := request(t, http.MethodPost, srv.URL+"/teams", `{"name":"Night Crew"}`, &team)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
			So(team.Name, ShouldEqual, "Night Crew")
			So(svc.teams, ShouldHaveLength, 3)
		})

		Convey("POST /teams with a bad body is a 400", func() {
			resp := request(t, http.MethodPost, srv.URL+"/teams", `{"name":`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("PATCH /teams/{id} updates name and slots", func() {
			var team model.Team
			resp := request(t, http.MethodPatch, srv.URL+"/teams/t1",
				`{"name":"Renamed","slots":["p3"]}`, &team)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(team.Name, ShouldEqual, "Renamed")
			So(team.Slots[0], ShouldEqual, "p3")
			So(team.Slots[1], ShouldEqual, "")
		})

		Convey("PATCH of an unknown team is a 404", func() {
			resp := request(t, http.MethodPatch, srv.URL+"/teams/ghost", `{"name":"x"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("DELETE /teams/{id} removes it", func() {
			resp := request(t, http.MethodDelete, srv.URL+"/teams/t2", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
			So(svc.teams, ShouldHaveLength, 1)

			resp = request(t, http.MethodDelete, srv.URL+"/teams/t2", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("POST /teams/order records the new order", func() {
			resp := request(t, http.MethodPost, srv.URL+"/teams/order", `{"ids":["t2","t1"]}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
			So(svc.order, ShouldResemble, []string{"t2", "t1"})
		})

		Convey("search round-trips per team", func() {
			resp := request(t, http.MethodPut, srv.URL+"/teams/t1/search", `{"query":"lvl 3 otter"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)

			var got struct {
				Query string `json:"query"`
			}
			resp = getJSON(t, srv.URL+"/teams/t1/search", &got)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(got.Query, ShouldEqual, "lvl 3 otter")

			resp = request(t, http.MethodGet, srv.URL+"/teams/ghost/search", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestUseTeamEndpoint(t *testing.T) {
	Convey("Given a server", t, func() {
		svc := &mockService{teams: []model.Team{{ID: "t1", Name: "Foragers"}}}
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("a successful run returns the counts", func() {
			svc.useResult = model.EquipResult{Swapped: 2, Placed: 1}
			var got struct {
				Swapped int    `json:"swapped"`
				Placed  int    `json:"placed"`
				Skipped int    `json:"skipped"`
				Error   string `json:"error"`
			}
			resp := request(t, http.MethodPost, srv.URL+"/teams/t1/use", "", &got)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(got.Swapped, ShouldEqual, 2)
			So(got.Placed, ShouldEqual, 1)
			So(got.Error, ShouldBeEmpty)
			So(svc.usedTeam, ShouldEqual, "t1")
		})

		Convey("an unknown team is a 404", func() {
			svc.useErr = teams.ErrUnknownTeam
			resp := request(t, http.MethodPost, srv.URL+"/teams/ghost/use", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("a busy queue is a 409", func() {
			svc.useErr = queue.ErrBusy
			resp := request(t, http.MethodPost, srv.URL+"/teams/t1/use", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("a fatal run surfaces partial counts with the error", func() {
			svc.useResult = model.EquipResult{Skipped: 1}
			svc.useErr = errors.New("inventory full")
			var got struct {
				Skipped int    `json:"skipped"`
				Error   string `json:"error"`
			}
			resp := request(t, http.MethodPost, srv.URL+"/teams/t1/use", "", &got)
			So(resp.StatusCode, ShouldEqual, http.StatusBadGateway)
			So(got.Skipped, ShouldEqual, 1)
			So(got.Error, ShouldContainSubstring, "inventory full")
		})

		Convey("GET on the use route is rejected", func() {
			resp := request(t, http.MethodGet, srv.URL+"/teams/t1/use", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAbilityLogEndpoint(t *testing.T) {
	Convey("Given a server with log entries", t, func() {
		svc := &mockService{logs: []model.AbilityLogEntry{
			{PetID: "p1", Nickname: "Splash", AbilityName: "Forage", Detail: "dug up truffle"},
			{PetID: "p2", Nickname: "Bandit", AbilityName: "Scare", Detail: "startled a crow"},
		}}
		srv := newTestServer(svc)
		defer srv.Close()

		Convey("GET /ability-log returns every entry", func() {
			var entries []model.AbilityLogEntry
			resp := getJSON(t, srv.URL+"/ability-log", &entries)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(entries, ShouldHaveLength, 2)
		})

		Convey("the filter parameter narrows the result", func() {
			var entries []model.AbilityLogEntry
			resp := getJSON(t, srv.URL+"/ability-log?filter=bandit", &entries)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].PetID, ShouldEqual, "p2")
		})

		Convey("DELETE /ability-log clears it", func() {
			resp := request(t, http.MethodDelete, srv.URL+"/ability-log", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNoContent)
			So(svc.cleared, ShouldBeTrue)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given a server", t, func() {
		srv := newTestServer(&mockService{})
		defer srv.Close()

		Convey("GET /stats returns the provider map", func() {
			var stats map[string]interface{}
			resp := getJSON(t, srv.URL+"/stats", &stats)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(stats["teams"], ShouldEqual, float64(2))
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	Convey("Given a server", t, func() {
		srv := newTestServer(&mockService{})
		defer srv.Close()

		Convey("GET /healthz serves the metrics registry", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
